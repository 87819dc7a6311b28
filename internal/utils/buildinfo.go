package utils

import (
	"fmt"
	"runtime/debug"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const (
	unknownVersion           = "unknown"
	develBuildVersion        = "(devel)"
	developmentVersionFormat = "dev-%s"
	shortHashLength          = 7
)

// GetApplicationVersion reports the module version from the build info. Development builds run
// inside a checkout fall back to the tag at HEAD, or to the abbreviated HEAD hash.
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != develBuildVersion {
		return buildInfo.Main.Version
	}
	repository, openError := git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
	if openError != nil {
		return unknownVersion
	}
	return describeRepository(repository)
}

// describeRepository returns the tag pointing at HEAD, lightweight or annotated, or dev-<hash>.
func describeRepository(repository *git.Repository) string {
	head, headError := repository.Head()
	if headError != nil {
		return unknownVersion
	}
	tags, tagsError := repository.Tags()
	if tagsError != nil {
		return unknownVersion
	}
	exactTag := ""
	_ = tags.ForEach(func(reference *plumbing.Reference) error {
		commitHash := reference.Hash()
		if tagObject, tagObjectError := repository.TagObject(commitHash); tagObjectError == nil {
			if commit, commitError := tagObject.Commit(); commitError == nil {
				commitHash = commit.Hash
			}
		}
		if commitHash == head.Hash() {
			exactTag = reference.Name().Short()
			return storer.ErrStop
		}
		return nil
	})
	if exactTag != "" {
		return exactTag
	}
	return fmt.Sprintf(developmentVersionFormat, head.Hash().String()[:shortHashLength])
}
