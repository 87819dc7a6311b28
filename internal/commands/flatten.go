package commands

import "github.com/temirov/reposum/internal/types"

// FlattenKeyDelimiter joins ancestor names in flattened keys.
const FlattenKeyDelimiter = " > "

// Flatten maps every node of the tree rooted at node to its recorded summary. Keys chain the
// ancestor names from the root, so the root key is its own name when prefix is empty. Nodes
// without a recorded summary map to nil. Entries follow pre-order traversal.
func Flatten(node *types.FolderNode, summaries *types.Summaries, prefix string) types.FlattenedSummaryMap {
	var flattened types.FlattenedSummaryMap
	if node == nil {
		return flattened
	}
	appendFlattened(&flattened, node, summaries, prefix)
	return flattened
}

func appendFlattened(flattened *types.FlattenedSummaryMap, node *types.FolderNode, summaries *types.Summaries, prefix string) {
	fullName := node.Name
	if prefix != "" {
		fullName = prefix + FlattenKeyDelimiter + node.Name
	}
	var summary *string
	if recorded, exists := summaries.Lookup(node.RelativePath); exists {
		summary = &recorded
	}
	flattened.Add(fullName, summary)
	for _, subfolder := range node.Subfolders {
		appendFlattened(flattened, subfolder, summaries, fullName)
	}
}
