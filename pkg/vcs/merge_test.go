package vcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mergedContentHash = "3f8f09c8e09f712b362183db69f4f061bd948d7a61e7663b585d723602c559b1" // sha256("merged")

func TestMerge_FastForward(t *testing.T) {
	s := newMergeScene(t)
	v2 := s.advance(t, s.feature, "feature work")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "ship it", "", "alice")
	require.NoError(t, err)
	assert.Equal(t, MergeStatusOpen, detail.Status)
	assert.False(t, detail.HasConflicts)
	assert.Empty(t, detail.Conflicts)

	merged, err := s.svc.ExecuteMerge(detail.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, MergeStatusMerged, merged.Status)
	assert.Equal(t, "bob", merged.MergedBy)
	require.NotNil(t, merged.MergedAt)

	pointer, err := NewBranchGraph(s.svc.db).GetPointer(s.main.ID, s.file.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, pointer.VersionID)
	assert.Equal(t, 2, pointer.VersionNumber)
}

func TestMerge_TargetAheadKeepsTargetVersion(t *testing.T) {
	s := newMergeScene(t)
	v2 := s.advance(t, s.main, "main work")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "no-op merge", "", "alice")
	require.NoError(t, err)
	assert.Equal(t, MergeStatusOpen, detail.Status)

	_, err = s.svc.ExecuteMerge(detail.ID, "alice")
	require.NoError(t, err)

	// The merge must not drag main back to the feature's older version.
	pointer, err := NewBranchGraph(s.svc.db).GetPointer(s.main.ID, s.file.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, pointer.VersionID)
	assert.Equal(t, 2, pointer.VersionNumber)
}

func TestMerge_ConvergedContentAdoptsSourceVersion(t *testing.T) {
	s := newMergeScene(t)
	s.advance(t, s.main, "same ending")
	vFeature := s.advance(t, s.feature, "same ending")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "converged", "", "alice")
	require.NoError(t, err)
	assert.False(t, detail.HasConflicts)

	_, err = s.svc.ExecuteMerge(detail.ID, "alice")
	require.NoError(t, err)

	// Equal content is no conflict, but the merge still copies the source
	// pointer; the target must end up on the source's version id.
	pointer, err := NewBranchGraph(s.svc.db).GetPointer(s.main.ID, s.file.ID)
	require.NoError(t, err)
	assert.Equal(t, vFeature.ID, pointer.VersionID)
	assert.Equal(t, vFeature.VersionNumber, pointer.VersionNumber)
}

func TestMerge_ConflictBlocksUntilResolved(t *testing.T) {
	s := newMergeScene(t)
	vMain := s.advance(t, s.main, "main work")
	vFeature := s.advance(t, s.feature, "feature work")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "diverged", "", "alice")
	require.NoError(t, err)
	assert.Equal(t, MergeStatusConflicts, detail.Status)
	assert.True(t, detail.HasConflicts)
	require.Len(t, detail.Conflicts, 1)

	conflict := detail.Conflicts[0]
	assert.Equal(t, s.file.ID, conflict.FileID)
	assert.Equal(t, "doc.txt", conflict.Filename)
	assert.Equal(t, vFeature.ID, conflict.SourceVersionID)
	assert.Equal(t, vMain.ID, conflict.TargetVersionID)
	assert.Equal(t, vFeature.VersionNumber, conflict.SourceVersion)
	assert.Equal(t, vMain.VersionNumber, conflict.TargetVersion)

	_, err = s.svc.ExecuteMerge(detail.ID, "alice")
	assert.ErrorIs(t, err, ErrMergeBlocked)
}

func TestMerge_ResolveTheirsRepointsTarget(t *testing.T) {
	s := newMergeScene(t)
	s.advance(t, s.main, "main work")
	vFeature := s.advance(t, s.feature, "feature work")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "diverged", "", "alice")
	require.NoError(t, err)
	require.Len(t, detail.Conflicts, 1)

	resolution, err := s.svc.ResolveConflict(detail.Conflicts[0].ConflictID, ResolveTheirs, "")
	require.NoError(t, err)
	assert.Equal(t, vFeature.ID, resolution.ResolvedVersion)

	_, err = s.svc.ExecuteMerge(detail.ID, "alice")
	require.NoError(t, err)

	pointer, err := NewBranchGraph(s.svc.db).GetPointer(s.main.ID, s.file.ID)
	require.NoError(t, err)
	assert.Equal(t, vFeature.ID, pointer.VersionID)
}

func TestMerge_ResolveOursKeepsTarget(t *testing.T) {
	s := newMergeScene(t)
	vMain := s.advance(t, s.main, "main work")
	s.advance(t, s.feature, "feature work")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "diverged", "", "alice")
	require.NoError(t, err)
	require.Len(t, detail.Conflicts, 1)

	resolution, err := s.svc.ResolveConflict(detail.Conflicts[0].ConflictID, ResolveOurs, "")
	require.NoError(t, err)
	assert.Equal(t, vMain.ID, resolution.ResolvedVersion)

	_, err = s.svc.ExecuteMerge(detail.ID, "alice")
	require.NoError(t, err)

	pointer, err := NewBranchGraph(s.svc.db).GetPointer(s.main.ID, s.file.ID)
	require.NoError(t, err)
	assert.Equal(t, vMain.ID, pointer.VersionID)
}

func TestMerge_ResolveManualCommitsNewVersion(t *testing.T) {
	s := newMergeScene(t)
	s.advance(t, s.main, "main work")
	s.advance(t, s.feature, "feature work")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "diverged", "", "alice")
	require.NoError(t, err)
	require.Len(t, detail.Conflicts, 1)

	resolution, err := s.svc.ResolveConflict(detail.Conflicts[0].ConflictID, ResolveManual, "merged")
	require.NoError(t, err)
	// File head was 3 after the two divergent commits.
	assert.Equal(t, 4, resolution.VersionNumber)

	version, err := NewVersionLedger(s.svc.db).GetVersion(s.file.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, "merged", version.ContentText)
	assert.Equal(t, mergedContentHash, version.ContentHash)
	assert.Equal(t, "Merge conflict resolution (manual)", version.CommitMessage)

	_, err = s.svc.ExecuteMerge(detail.ID, "alice")
	require.NoError(t, err)

	pointer, err := NewBranchGraph(s.svc.db).GetPointer(s.main.ID, s.file.ID)
	require.NoError(t, err)
	assert.Equal(t, version.ID, pointer.VersionID)
}

func TestMerge_ResolveManualRequiresContent(t *testing.T) {
	s := newMergeScene(t)
	s.advance(t, s.main, "main work")
	s.advance(t, s.feature, "feature work")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "diverged", "", "alice")
	require.NoError(t, err)

	_, err = s.svc.ResolveConflict(detail.Conflicts[0].ConflictID, ResolveManual, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMerge_ResolveTwiceRefused(t *testing.T) {
	s := newMergeScene(t)
	s.advance(t, s.main, "main work")
	s.advance(t, s.feature, "feature work")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "diverged", "", "alice")
	require.NoError(t, err)

	_, err = s.svc.ResolveConflict(detail.Conflicts[0].ConflictID, ResolveOurs, "")
	require.NoError(t, err)
	_, err = s.svc.ResolveConflict(detail.Conflicts[0].ConflictID, ResolveOurs, "")
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestMerge_TitleRequired(t *testing.T) {
	s := newMergeScene(t)
	_, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "", "", "alice")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMerge_UnknownBranch(t *testing.T) {
	s := newMergeScene(t)
	_, err := s.svc.CreateMergeRequest(s.repo.ID, "ghost", "main", "x", "", "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMerge_ExecuteTwiceRefused(t *testing.T) {
	s := newMergeScene(t)
	s.advance(t, s.feature, "feature work")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "ship it", "", "alice")
	require.NoError(t, err)
	_, err = s.svc.ExecuteMerge(detail.ID, "alice")
	require.NoError(t, err)

	_, err = s.svc.ExecuteMerge(detail.ID, "alice")
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestMerge_ClosedRequestCannotExecute(t *testing.T) {
	s := newMergeScene(t)
	s.advance(t, s.feature, "feature work")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "abandon", "", "alice")
	require.NoError(t, err)

	closed, err := s.svc.CloseMergeRequest(detail.ID)
	require.NoError(t, err)
	assert.Equal(t, MergeStatusClosed, closed.Status)

	_, err = s.svc.ExecuteMerge(detail.ID, "alice")
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = s.svc.CloseMergeRequest(detail.ID)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestMerge_AddedFileCopiedToTarget(t *testing.T) {
	s := newMergeScene(t)
	extra := &File{RepositoryID: s.repo.ID, Filename: "extra.txt"}
	require.NoError(t, s.svc.db.Create(extra).Error)
	v, err := NewVersionLedger(s.svc.db).CreateInitialVersion(extra, Blob{Text: "fresh"}, "", "")
	require.NoError(t, err)
	require.NoError(t, NewBranchGraph(s.svc.db).SetPointer(s.feature.ID, extra.ID, v.ID, 1, ""))

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "add file", "", "alice")
	require.NoError(t, err)
	_, err = s.svc.ExecuteMerge(detail.ID, "alice")
	require.NoError(t, err)

	pointer, err := NewBranchGraph(s.svc.db).GetPointer(s.main.ID, extra.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, pointer.VersionID)
}

func TestMerge_GetRequestWithMissingConflictFile(t *testing.T) {
	s := newMergeScene(t)
	s.advance(t, s.main, "main work")
	s.advance(t, s.feature, "feature work")

	detail, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "diverged", "", "alice")
	require.NoError(t, err)
	require.Len(t, detail.Conflicts, 1)

	// Conflict rows can outlive their file; the lookup must classify the
	// missing row as not-found, not as a storage failure.
	require.NoError(t, s.svc.db.Delete(&File{}, s.file.ID).Error)

	_, err = s.svc.GetMergeRequest(detail.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrStorage)
}

func TestMerge_ListAndGet(t *testing.T) {
	s := newMergeScene(t)
	s.advance(t, s.feature, "feature work")

	created, err := s.svc.CreateMergeRequest(s.repo.ID, "feature", "main", "ship it", "details", "alice")
	require.NoError(t, err)

	all, err := s.svc.ListMergeRequests(s.repo.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "feature", all[0].SourceBranchName)
	assert.Equal(t, "main", all[0].TargetBranchName)

	open, err := s.svc.ListMergeRequests(s.repo.ID, MergeStatusOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)
	merged, err := s.svc.ListMergeRequests(s.repo.ID, MergeStatusMerged)
	require.NoError(t, err)
	assert.Empty(t, merged)

	got, err := s.svc.GetMergeRequest(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ship it", got.Title)
	assert.Equal(t, "details", got.Description)
}
