// Package vcs implements a lightweight version-control backend: repositories
// contain files, each file has an append-only sequence of immutable content
// versions, and branches are named pointer sets selecting one version per
// file. Merging is whole-file: diverging files are detected and surfaced as
// conflicts rather than auto-merged line by line.
package vcs

import (
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// DefaultBranchName is the branch created with every new repository.
const DefaultBranchName = "main"

// Service exposes the version-control operations to callers. Transport and
// authentication are somebody else's problem; the service takes already
// authenticated principal identifiers where it needs an actor.
type Service struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewService creates a service over an injected store handle.
func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, log: logger}
}

// AutoMigrate creates or updates every table the service persists to.
func (s *Service) AutoMigrate() error {
	models := []any{
		&Repository{}, &File{}, &FileVersion{},
		&Branch{}, &BranchFilePointer{}, &BranchVersionLogEntry{},
		&MergeRequest{}, &MergeConflict{},
	}
	for _, model := range models {
		if err := s.db.AutoMigrate(model); err != nil {
			return storagef("auto-migrate", err)
		}
	}
	return nil
}

// CreateRepository creates a repository together with its default branch.
func (s *Service) CreateRepository(name, description, ownerID string) (*Repository, error) {
	if name == "" {
		return nil, validationf("repository name is required")
	}

	repo := &Repository{Name: name, Description: description, OwnerID: ownerID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(repo).Error; err != nil {
			return storagef("create repository", err)
		}
		_, err := NewBranchGraph(tx).CreateBranch(repo.ID, DefaultBranchName, nil, true, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("repository created", "repository_id", repo.ID, "name", name, "owner", ownerID)
	return repo, nil
}

// GetRepository returns a repository by id.
func (s *Service) GetRepository(repoID int64) (*Repository, error) {
	var repo Repository
	err := s.db.First(&repo, repoID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("repository %d", repoID)
	}
	if err != nil {
		return nil, storagef("get repository", err)
	}
	return &repo, nil
}

// ListRepositories returns repositories newest first, filtered by owner when
// ownerID is non-empty.
func (s *Service) ListRepositories(ownerID string) ([]Repository, error) {
	query := s.db.Order("created_at DESC").Order("id DESC")
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}
	var repos []Repository
	if err := query.Find(&repos).Error; err != nil {
		return nil, storagef("list repositories", err)
	}
	return repos, nil
}

// RepositoryUpdate carries the mutable repository fields; nil means keep.
type RepositoryUpdate struct {
	Name        *string
	Description *string
}

// UpdateRepository changes repository metadata. Only the owner may update.
func (s *Service) UpdateRepository(repoID int64, ownerID string, update RepositoryUpdate) (*Repository, error) {
	repo, err := s.GetRepository(repoID)
	if err != nil {
		return nil, err
	}
	if repo.OwnerID != ownerID {
		return nil, invalidOpf("repository %d is not owned by %q", repoID, ownerID)
	}

	fields := map[string]any{}
	if update.Name != nil {
		if *update.Name == "" {
			return nil, validationf("repository name cannot be empty")
		}
		fields["name"] = *update.Name
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if len(fields) == 0 {
		return repo, nil
	}

	if err := s.db.Model(&Repository{}).Where("id = ?", repoID).Updates(fields).Error; err != nil {
		return nil, storagef("update repository", err)
	}
	return s.GetRepository(repoID)
}

// DeleteRepository removes a repository and everything it owns: files,
// versions, branches, pointers, version logs, merge requests and conflicts.
func (s *Service) DeleteRepository(repoID int64, ownerID string) error {
	repo, err := s.GetRepository(repoID)
	if err != nil {
		return err
	}
	if repo.OwnerID != ownerID {
		return invalidOpf("repository %d is not owned by %q", repoID, ownerID)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		fileIDs := tx.Model(&File{}).Select("id").Where("repository_id = ?", repoID)
		branchIDs := tx.Model(&Branch{}).Select("id").Where("repository_id = ?", repoID)
		requestIDs := tx.Model(&MergeRequest{}).Select("id").Where("repository_id = ?", repoID)

		steps := []struct {
			name  string
			query *gorm.DB
			model any
		}{
			{"merge conflicts", tx.Where("merge_request_id IN (?)", requestIDs), &MergeConflict{}},
			{"merge requests", tx.Where("repository_id = ?", repoID), &MergeRequest{}},
			{"version logs", tx.Where("branch_id IN (?)", branchIDs), &BranchVersionLogEntry{}},
			{"pointers", tx.Where("branch_id IN (?)", branchIDs), &BranchFilePointer{}},
			{"branches", tx.Where("repository_id = ?", repoID), &Branch{}},
			{"versions", tx.Where("file_id IN (?)", fileIDs), &FileVersion{}},
			{"files", tx.Where("repository_id = ?", repoID), &File{}},
			{"repository", tx.Where("id = ?", repoID), &Repository{}},
		}
		for _, step := range steps {
			if err := step.query.Delete(step.model).Error; err != nil {
				return storagef("delete "+step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("repository deleted", "repository_id", repoID, "owner", ownerID)
	return nil
}

// RepositoryStats summarizes a repository's contents.
type RepositoryStats struct {
	TotalFiles    int64      `json:"total_files"`
	TotalVersions int64      `json:"total_versions"`
	TotalSize     int64      `json:"total_size"`
	LastActivity  *time.Time `json:"last_activity,omitempty"`
}

// Stats computes file/version counts, the total stored size, and the time
// of the most recent version.
func (s *Service) Stats(repoID int64) (*RepositoryStats, error) {
	if _, err := s.GetRepository(repoID); err != nil {
		return nil, err
	}

	var stats RepositoryStats
	if err := s.db.Model(&File{}).Where("repository_id = ?", repoID).
		Count(&stats.TotalFiles).Error; err != nil {
		return nil, storagef("count files", err)
	}

	fileIDs := s.db.Model(&File{}).Select("id").Where("repository_id = ?", repoID)
	versions := s.db.Model(&FileVersion{}).Where("file_id IN (?)", fileIDs)
	if err := versions.Count(&stats.TotalVersions).Error; err != nil {
		return nil, storagef("count versions", err)
	}

	if stats.TotalVersions > 0 {
		var totalSize *int64
		err := s.db.Model(&FileVersion{}).Where("file_id IN (?)", fileIDs).
			Select("SUM(file_size)").Scan(&totalSize).Error
		if err != nil {
			return nil, storagef("sum sizes", err)
		}
		if totalSize != nil {
			stats.TotalSize = *totalSize
		}

		var latest FileVersion
		err = s.db.Where("file_id IN (?)", fileIDs).
			Order("created_at DESC").First(&latest).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storagef("last activity", err)
		}
		if err == nil {
			stats.LastActivity = &latest.CreatedAt
		}
	}
	return &stats, nil
}

// ActivityEntry is one row of recent repository activity.
type ActivityEntry struct {
	FileID        int64     `json:"file_id"`
	Filename      string    `json:"filename"`
	VersionNumber int       `json:"version_number"`
	CommitMessage string    `json:"commit_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Activity returns the most recent versions across all files, newest first.
func (s *Service) Activity(repoID int64, limit int) ([]ActivityEntry, error) {
	if _, err := s.GetRepository(repoID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	var entries []ActivityEntry
	err := s.db.Model(&FileVersion{}).
		Select("file_versions.file_id", "files.filename",
			"file_versions.version_number", "file_versions.commit_message",
			"file_versions.created_at").
		Joins("JOIN files ON files.id = file_versions.file_id").
		Where("files.repository_id = ?", repoID).
		Order("file_versions.created_at DESC").Order("file_versions.id DESC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, storagef("repository activity", err)
	}
	return entries, nil
}
