package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/reposum/internal/repository"
	"github.com/temirov/reposum/internal/types"
)

func TestRepoOrFolderName(testingHandle *testing.T) {
	testCases := []struct {
		input    string
		mode     string
		expected string
	}{
		{input: "https://github.com/username/repository.git", mode: types.ModeRepo, expected: "repository"},
		{input: "https://github.com/username/repository/", mode: types.ModeRepo, expected: "repository"},
		{input: "git@github.com:username/tool.git", mode: types.ModeRepo, expected: "tool"},
		{input: "git@host:bare.git", mode: types.ModeRepo, expected: "bare"},
		{input: "/tmp/projects/alpha/", mode: types.ModeLocal, expected: "alpha"},
		{input: "/tmp/projects/beta", mode: types.ModeLocal, expected: "beta"},
	}
	for _, testCase := range testCases {
		assert.Equal(testingHandle, testCase.expected, repository.RepoOrFolderName(testCase.input, testCase.mode), testCase.input)
	}
}

func TestRepoOrFolderNameRelativeLocalPath(testingHandle *testing.T) {
	workingDirectory, err := os.Getwd()
	require.NoError(testingHandle, err)
	assert.Equal(testingHandle, filepath.Base(workingDirectory), repository.RepoOrFolderName(".", types.ModeLocal))
}

func TestIsGitURLAndInferMode(testingHandle *testing.T) {
	for _, remote := range []string{"https://github.com/a/b", "git@github.com:a/b.git", "ssh://host/repo", "repo.git"} {
		assert.True(testingHandle, repository.IsGitURL(remote), remote)
		assert.Equal(testingHandle, types.ModeRepo, repository.InferMode(remote))
	}
	for _, local := range []string{".", "./src", "/home/user/project", "C:\\work\\project"} {
		assert.False(testingHandle, repository.IsGitURL(local), local)
		assert.Equal(testingHandle, types.ModeLocal, repository.InferMode(local))
	}
}

func TestAcquireLocalDirectory(testingHandle *testing.T) {
	directory := testingHandle.TempDir()
	source, err := repository.Acquire(context.Background(), directory, repository.AcquireOptions{Mode: types.ModeLocal})
	require.NoError(testingHandle, err)
	assert.Equal(testingHandle, directory, source.Root)
	assert.Equal(testingHandle, filepath.Base(directory), source.Name)
	require.NoError(testingHandle, source.Close())
	assert.DirExists(testingHandle, directory)
}

func TestAcquireLocalRejectsFilesAndMissingPaths(testingHandle *testing.T) {
	directory := testingHandle.TempDir()
	filePath := filepath.Join(directory, "file.txt")
	require.NoError(testingHandle, os.WriteFile(filePath, []byte("x"), 0o644))

	_, fileError := repository.Acquire(context.Background(), filePath, repository.AcquireOptions{Mode: types.ModeLocal})
	assert.ErrorContains(testingHandle, fileError, "is not a directory")
	_, missingError := repository.Acquire(context.Background(), filepath.Join(directory, "missing"), repository.AcquireOptions{Mode: types.ModeLocal})
	assert.ErrorContains(testingHandle, missingError, "does not exist")
}

func TestAcquireResolvesRelativePathAgainstWorkingDirectory(testingHandle *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testingHandle, fileSystem.MkdirAll("/workspace/project/lib", 0o755))

	source, err := repository.Acquire(context.Background(), "project", repository.AcquireOptions{
		WorkingDirectory: "/workspace",
		FileSystem:       fileSystem,
	})
	require.NoError(testingHandle, err)
	assert.Equal(testingHandle, types.ModeLocal, source.Mode)
	assert.Equal(testingHandle, filepath.FromSlash("/workspace/project"), source.Root)
	assert.Equal(testingHandle, "project", source.Name)

	dotSource, err := repository.Acquire(context.Background(), ".", repository.AcquireOptions{
		WorkingDirectory: "/workspace/project",
		FileSystem:       fileSystem,
	})
	require.NoError(testingHandle, err)
	assert.Equal(testingHandle, "project", dotSource.Name)

	_, missingError := repository.Acquire(context.Background(), "absent", repository.AcquireOptions{
		WorkingDirectory: "/workspace",
		FileSystem:       fileSystem,
	})
	assert.ErrorContains(testingHandle, missingError, "does not exist")
}

func TestAcquireUnknownMode(testingHandle *testing.T) {
	_, err := repository.Acquire(context.Background(), ".", repository.AcquireOptions{Mode: "archive"})
	assert.ErrorContains(testingHandle, err, "unknown mode")
}

func TestAcquireClonesRepositoryAndCleansUp(testingHandle *testing.T) {
	sourceDirectory := filepath.Join(testingHandle.TempDir(), "upstream")
	gitRepository, err := git.PlainInit(sourceDirectory, false)
	require.NoError(testingHandle, err)
	require.NoError(testingHandle, os.WriteFile(filepath.Join(sourceDirectory, "main.go"), []byte("package main\n"), 0o644))
	worktree, err := gitRepository.Worktree()
	require.NoError(testingHandle, err)
	_, err = worktree.Add("main.go")
	require.NoError(testingHandle, err)
	_, err = worktree.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(testingHandle, err)

	source, err := repository.Acquire(context.Background(), sourceDirectory, repository.AcquireOptions{Mode: types.ModeRepo})
	require.NoError(testingHandle, err)
	assert.Equal(testingHandle, "upstream", source.Name)
	assert.Equal(testingHandle, "upstream", filepath.Base(source.Root))
	assert.FileExists(testingHandle, filepath.Join(source.Root, "main.go"))

	require.NoError(testingHandle, source.Close())
	assert.NoDirExists(testingHandle, filepath.Dir(source.Root))
	require.NoError(testingHandle, source.Close())
}

func TestAcquireCloneFailureLeavesNothingBehind(testingHandle *testing.T) {
	missingRemote := filepath.Join(testingHandle.TempDir(), "missing.git")
	_, err := repository.Acquire(context.Background(), missingRemote, repository.AcquireOptions{})
	require.Error(testingHandle, err)
	assert.ErrorContains(testingHandle, err, "clone repository")
}
