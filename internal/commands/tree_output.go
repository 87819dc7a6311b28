package commands

import (
	"path/filepath"
	"sort"

	"github.com/temirov/reposum/internal/types"
)

// GetTreeData converts a folder tree into the renderable tree of the tree command. Files are
// marked with whether their content would be read or replaced by a placeholder. Directory nodes
// carry the number of files beneath them.
func (treeBuilder *TreeBuilder) GetTreeData(node *types.FolderNode) *types.TreeOutputNode {
	if node == nil {
		return nil
	}
	policy := treeBuilder.policy()
	outputNode := &types.TreeOutputNode{
		Path: node.Path,
		Name: node.Name,
		Type: types.NodeTypeDirectory,
	}
	totalFiles := len(node.Files)
	for _, subfolder := range node.Subfolders {
		childNode := treeBuilder.GetTreeData(subfolder)
		totalFiles += childNode.TotalFiles
		outputNode.Children = append(outputNode.Children, childNode)
	}
	for _, fileName := range node.Files {
		fileNode := &types.TreeOutputNode{
			Path:         filepath.Join(node.Path, fileName),
			Name:         fileName,
			Type:         types.NodeTypeFile,
			ContentState: types.ContentStatePlaceholder,
		}
		if policy.ShouldProcessFileContent(fileName) {
			fileNode.ContentState = types.ContentStateRead
			fileNode.Language = policy.LanguageTag(fileName)
		}
		outputNode.Children = append(outputNode.Children, fileNode)
	}
	sort.SliceStable(outputNode.Children, func(left, right int) bool {
		return outputNode.Children[left].Name < outputNode.Children[right].Name
	})
	outputNode.TotalFiles = totalFiles
	return outputNode
}
