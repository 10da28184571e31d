package vcs

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// CreateBranch creates a branch from the named parent, or from the
// repository's default branch when parentName is empty. The parent's
// pointer set is snapshotted at creation time.
func (s *Service) CreateBranch(repoID int64, name, parentName, createdBy string) (*Branch, error) {
	if name == "" {
		return nil, validationf("branch name is required")
	}
	if _, err := s.GetRepository(repoID); err != nil {
		return nil, err
	}

	parent, err := s.resolveBranch(repoID, parentName)
	if err != nil {
		return nil, err
	}

	branch, err := NewBranchGraph(s.db).CreateBranch(repoID, name, parent, false, createdBy)
	if err != nil {
		return nil, err
	}

	s.log.Info("branch created",
		"repository_id", repoID, "branch", name, "parent", parent.Name)
	return branch, nil
}

// ListBranches returns the repository's branches, default branch first,
// then newest first.
func (s *Service) ListBranches(repoID int64) ([]Branch, error) {
	if _, err := s.GetRepository(repoID); err != nil {
		return nil, err
	}
	var branches []Branch
	err := s.db.Where("repository_id = ?", repoID).
		Order("is_default DESC").Order("created_at DESC").
		Find(&branches).Error
	if err != nil {
		return nil, storagef("list branches", err)
	}
	return branches, nil
}

// BranchFileEntry is one file in a branch's pointer set.
type BranchFileEntry struct {
	FileID        int64  `json:"file_id"`
	Filename      string `json:"filename"`
	VersionID     int64  `json:"version_id"`
	VersionNumber int    `json:"version_number"`
}

// BranchDetail is a branch with its pointer set joined to filenames.
type BranchDetail struct {
	Branch
	Files []BranchFileEntry `json:"files"`
}

// GetBranch returns a branch and the files it points at.
func (s *Service) GetBranch(repoID int64, name string) (*BranchDetail, error) {
	branch, err := s.branchByName(repoID, name)
	if err != nil {
		return nil, err
	}

	var files []BranchFileEntry
	err = s.db.Model(&BranchFilePointer{}).
		Select("branch_file_pointers.file_id", "files.filename",
			"branch_file_pointers.version_id", "branch_file_pointers.version_number").
		Joins("JOIN files ON files.id = branch_file_pointers.file_id").
		Where("branch_file_pointers.branch_id = ?", branch.ID).
		Order("files.filename ASC").
		Scan(&files).Error
	if err != nil {
		return nil, storagef("branch files", err)
	}
	return &BranchDetail{Branch: *branch, Files: files}, nil
}

// DeleteBranch removes a branch by name. The default branch is protected.
func (s *Service) DeleteBranch(repoID int64, name string) error {
	branch, err := s.branchByName(repoID, name)
	if err != nil {
		return err
	}
	if err := NewBranchGraph(s.db).DeleteBranch(branch); err != nil {
		return err
	}
	s.log.Info("branch deleted", "repository_id", repoID, "branch", name)
	return nil
}

// BranchHistoryEntry is one pointer change on a branch, joined with file
// and version metadata.
type BranchHistoryEntry struct {
	ChangeID      string    `json:"change_id"`
	FileID        int64     `json:"file_id"`
	Filename      string    `json:"filename"`
	VersionID     int64     `json:"version_id"`
	VersionNumber int       `json:"version_number"`
	CommitMessage string    `json:"commit_message,omitempty"`
	ContentHash   string    `json:"content_hash"`
	FileSize      int64     `json:"file_size"`
	MimeType      string    `json:"mime_type"`
	CreatedAt     time.Time `json:"created_at"`
}

// BranchHistory returns every pointer change ever made on a branch, newest
// first. History is retained even for deleted branches when queried by name
// before deletion; entries themselves survive branch deletion.
func (s *Service) BranchHistory(repoID int64, name string) ([]BranchHistoryEntry, error) {
	branch, err := s.branchByName(repoID, name)
	if err != nil {
		return nil, err
	}

	var entries []BranchHistoryEntry
	err = s.db.Model(&BranchVersionLogEntry{}).
		Select("branch_versions.change_id", "branch_versions.file_id", "files.filename",
			"branch_versions.version_id", "branch_versions.version_number",
			"branch_versions.commit_message", "file_versions.content_hash",
			"file_versions.file_size", "file_versions.mime_type",
			"branch_versions.created_at").
		Joins("JOIN files ON files.id = branch_versions.file_id").
		Joins("JOIN file_versions ON file_versions.id = branch_versions.version_id").
		Where("branch_versions.branch_id = ?", branch.ID).
		Order("branch_versions.created_at DESC").Order("branch_versions.id DESC").
		Scan(&entries).Error
	if err != nil {
		return nil, storagef("branch history", err)
	}
	return entries, nil
}

// branchByName loads a branch in a repository, ErrNotFound when absent.
func (s *Service) branchByName(repoID int64, name string) (*Branch, error) {
	var branch Branch
	err := s.db.Where("repository_id = ? AND name = ?", repoID, name).First(&branch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("branch %q in repository %d", name, repoID)
	}
	if err != nil {
		return nil, storagef("get branch", err)
	}
	return &branch, nil
}

// defaultBranch loads the repository's default branch.
func (s *Service) defaultBranch(repoID int64) (*Branch, error) {
	var branch Branch
	err := s.db.Where("repository_id = ? AND is_default = ?", repoID, true).First(&branch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("default branch of repository %d", repoID)
	}
	if err != nil {
		return nil, storagef("get default branch", err)
	}
	return &branch, nil
}

// resolveBranch returns the named branch, or the default branch for the
// empty name.
func (s *Service) resolveBranch(repoID int64, name string) (*Branch, error) {
	if name == "" {
		return s.defaultBranch(repoID)
	}
	return s.branchByName(repoID, name)
}
