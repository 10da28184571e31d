package vcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitlite/gitlite/pkg/diff"
)

func TestService_CreateRepositoryBootstrapsDefaultBranch(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "a project", "alice")
	require.NoError(t, err)
	assert.NotZero(t, repo.ID)

	branches, err := svc.ListBranches(repo.ID)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, DefaultBranchName, branches[0].Name)
	assert.True(t, branches[0].IsDefault)
}

func TestService_CreateRepositoryRequiresName(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateRepository("", "", "alice")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_ListRepositoriesByOwner(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateRepository("one", "", "alice")
	require.NoError(t, err)
	_, err = svc.CreateRepository("two", "", "bob")
	require.NoError(t, err)

	all, err := svc.ListRepositories("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.ListRepositories("alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "one", mine[0].Name)
}

func TestService_UpdateRepositoryOwnerOnly(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)

	name := "renamed"
	_, err = svc.UpdateRepository(repo.ID, "mallory", RepositoryUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	updated, err := svc.UpdateRepository(repo.ID, "alice", RepositoryUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "", updated.Description)
}

func TestService_DeleteRepositoryCascades(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)
	file, err := svc.CreateFile(repo.ID, "a.txt", Blob{Text: "one"}, "", "")
	require.NoError(t, err)
	_, err = svc.UpdateFile(repo.ID, file.ID, Blob{Text: "two"}, "", "")
	require.NoError(t, err)

	require.Error(t, svc.DeleteRepository(repo.ID, "mallory"))
	require.NoError(t, svc.DeleteRepository(repo.ID, "alice"))

	_, err = svc.GetRepository(repo.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, model := range []any{&File{}, &FileVersion{}, &Branch{}, &BranchFilePointer{}, &BranchVersionLogEntry{}} {
		var count int64
		require.NoError(t, svc.db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}
}

func TestService_CreateFileCommitsVersionOne(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)

	file, err := svc.CreateFile(repo.ID, "readme.md", Blob{Text: "# hi"}, "add readme", "")
	require.NoError(t, err)

	got, err := svc.GetFile(repo.ID, file.ID, DefaultBranchName)
	require.NoError(t, err)
	assert.Equal(t, 1, got.VersionNumber)
	assert.Equal(t, "# hi", got.ContentText)
	assert.Equal(t, "text/markdown", got.MimeType)
}

func TestService_CreateFileWithoutContent(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)

	file, err := svc.CreateFile(repo.ID, "todo.txt", Blob{}, "", "")
	require.NoError(t, err)

	got, err := svc.GetFile(repo.ID, file.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, got.VersionNumber)
	assert.Empty(t, got.ContentText)
}

func TestService_CreateFileDuplicateName(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)
	_, err = svc.CreateFile(repo.ID, "a.txt", Blob{Text: "x"}, "", "")
	require.NoError(t, err)

	_, err = svc.CreateFile(repo.ID, "a.txt", Blob{Text: "y"}, "", "")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestService_UpdateFileMovesOnlyNamedBranch(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)
	file, err := svc.CreateFile(repo.ID, "a.txt", Blob{Text: "one"}, "", "")
	require.NoError(t, err)
	_, err = svc.CreateBranch(repo.ID, "feature", "", "alice")
	require.NoError(t, err)

	updated, err := svc.UpdateFile(repo.ID, file.ID, Blob{Text: "two"}, "more", "feature")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.VersionNumber)
	assert.Equal(t, "two", updated.ContentText)

	onMain, err := svc.GetFile(repo.ID, file.ID, DefaultBranchName)
	require.NoError(t, err)
	assert.Equal(t, 1, onMain.VersionNumber)
	assert.Equal(t, "one", onMain.ContentText)
}

func TestService_ListFilesBranchScoped(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)
	_, err = svc.CreateFile(repo.ID, "a.txt", Blob{Text: "x"}, "", "")
	require.NoError(t, err)
	// No content, so no branch pointer either.
	_, err = svc.CreateFile(repo.ID, "b.txt", Blob{}, "", "")
	require.NoError(t, err)

	all, err := svc.ListFiles(repo.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onMain, err := svc.ListFiles(repo.ID, DefaultBranchName)
	require.NoError(t, err)
	require.Len(t, onMain, 1)
	assert.Equal(t, "a.txt", onMain[0].Filename)
}

func TestService_DeleteFile(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)
	file, err := svc.CreateFile(repo.ID, "a.txt", Blob{Text: "x"}, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFile(repo.ID, file.ID))
	_, err = svc.GetFile(repo.ID, file.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, svc.db.Model(&FileVersion{}).Where("file_id = ?", file.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestService_ListVersionsBranchScope(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)
	file, err := svc.CreateFile(repo.ID, "a.txt", Blob{Text: "one"}, "", "")
	require.NoError(t, err)
	_, err = svc.CreateBranch(repo.ID, "feature", "", "alice")
	require.NoError(t, err)
	_, err = svc.UpdateFile(repo.ID, file.ID, Blob{Text: "two"}, "", DefaultBranchName)
	require.NoError(t, err)

	all, err := svc.ListVersions(repo.ID, file.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 2, all[0].VersionNumber)
	assert.Equal(t, 1, all[1].VersionNumber)

	onFeature, err := svc.ListVersions(repo.ID, file.ID, "feature")
	require.NoError(t, err)
	require.Len(t, onFeature, 1)
	assert.Equal(t, 1, onFeature[0].VersionNumber)
	assert.Empty(t, onFeature[0].ContentText)
}

func TestService_DiffVersions(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)
	file, err := svc.CreateFile(repo.ID, "a.txt", Blob{Text: "a\nb\nc"}, "", "")
	require.NoError(t, err)
	_, err = svc.UpdateFile(repo.ID, file.ID, Blob{Text: "a\nx\nc"}, "", "")
	require.NoError(t, err)

	result, err := svc.DiffVersions(repo.ID, file.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", result.Filename)
	assert.Contains(t, result.Unified, "-b")
	assert.Contains(t, result.Unified, "+x")
	assert.Equal(t, 1, result.SideBySide.Statistics.Modifications)

	same, err := svc.DiffVersions(repo.ID, file.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, diff.NoChanges, same.Unified)
}

func TestService_DiffVersionsRejectsBinary(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)
	file, err := svc.CreateFile(repo.ID, "blob.bin", Blob{Binary: []byte{0x00, 0x01}}, "", "")
	require.NoError(t, err)
	_, err = svc.UpdateFile(repo.ID, file.ID, Blob{Binary: []byte{0x02}}, "", "")
	require.NoError(t, err)

	_, err = svc.DiffVersions(repo.ID, file.ID, 1, 2)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_BranchLifecycle(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)
	file, err := svc.CreateFile(repo.ID, "a.txt", Blob{Text: "one"}, "first", "")
	require.NoError(t, err)

	branch, err := svc.CreateBranch(repo.ID, "feature", "", "alice")
	require.NoError(t, err)
	assert.False(t, branch.IsDefault)

	detail, err := svc.GetBranch(repo.ID, "feature")
	require.NoError(t, err)
	require.Len(t, detail.Files, 1)
	assert.Equal(t, "a.txt", detail.Files[0].Filename)
	assert.Equal(t, 1, detail.Files[0].VersionNumber)

	history, err := svc.BranchHistory(repo.ID, DefaultBranchName)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, file.ID, history[0].FileID)
	assert.Equal(t, "first", history[0].CommitMessage)

	require.NoError(t, svc.DeleteBranch(repo.ID, "feature"))
	_, err = svc.GetBranch(repo.ID, "feature")
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.DeleteBranch(repo.ID, DefaultBranchName)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestService_StatsAndActivity(t *testing.T) {
	svc := newTestService(t)
	repo, err := svc.CreateRepository("proj", "", "alice")
	require.NoError(t, err)

	empty, err := svc.Stats(repo.ID)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalFiles)
	assert.Nil(t, empty.LastActivity)

	file, err := svc.CreateFile(repo.ID, "a.txt", Blob{Text: "one"}, "first", "")
	require.NoError(t, err)
	_, err = svc.UpdateFile(repo.ID, file.ID, Blob{Text: "two!"}, "second", "")
	require.NoError(t, err)

	stats, err := svc.Stats(repo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalFiles)
	assert.Equal(t, int64(2), stats.TotalVersions)
	assert.Equal(t, int64(7), stats.TotalSize)
	assert.NotNil(t, stats.LastActivity)

	activity, err := svc.Activity(repo.ID, 0)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, 2, activity[0].VersionNumber)
	assert.Equal(t, "second", activity[0].CommitMessage)
	assert.Equal(t, 1, activity[1].VersionNumber)
}
