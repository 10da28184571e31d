package vcs

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BranchGraph manages branches as named pointer sets with parent linkage.
// Like VersionLedger, it is constructed over the handle (or transaction)
// the operation runs in.
type BranchGraph struct {
	db *gorm.DB
}

// NewBranchGraph creates a graph bound to the given store handle.
func NewBranchGraph(db *gorm.DB) *BranchGraph {
	return &BranchGraph{db: db}
}

// CreateBranch creates a branch and clones the parent's pointer set as a
// point-in-time snapshot. Each cloned pointer records the version it was
// cloned from as its base, which later serves as the ancestor for conflict
// reasoning. A nil parent creates an empty branch.
func (g *BranchGraph) CreateBranch(repoID int64, name string, parent *Branch, isDefault bool, createdBy string) (*Branch, error) {
	var count int64
	if err := g.db.Model(&Branch{}).
		Where("repository_id = ? AND name = ?", repoID, name).
		Count(&count).Error; err != nil {
		return nil, storagef("check branch name", err)
	}
	if count > 0 {
		return nil, alreadyExistsf("branch %q", name)
	}

	branch := &Branch{
		RepositoryID: repoID,
		Name:         name,
		IsDefault:    isDefault,
		CreatedBy:    createdBy,
	}
	if parent != nil {
		branch.ParentBranchID = &parent.ID
	}

	err := g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(branch).Error; err != nil {
			return storagef("create branch", err)
		}
		if parent == nil {
			return nil
		}

		var parentPointers []BranchFilePointer
		if err := tx.Where("branch_id = ?", parent.ID).Find(&parentPointers).Error; err != nil {
			return storagef("load parent pointers", err)
		}
		if len(parentPointers) == 0 {
			return nil
		}

		clones := make([]BranchFilePointer, len(parentPointers))
		for i, p := range parentPointers {
			base := p.VersionID
			clones[i] = BranchFilePointer{
				BranchID:      branch.ID,
				FileID:        p.FileID,
				VersionID:     p.VersionID,
				VersionNumber: p.VersionNumber,
				BaseVersionID: &base,
			}
		}
		if err := tx.Create(&clones).Error; err != nil {
			return storagef("clone pointers", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return branch, nil
}

// DeleteBranch removes a branch and its pointers. The default branch cannot
// be deleted. Log entries are retained for audit.
func (g *BranchGraph) DeleteBranch(branch *Branch) error {
	if branch.IsDefault {
		return invalidOpf("cannot delete default branch %q", branch.Name)
	}
	return g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("branch_id = ?", branch.ID).Delete(&BranchFilePointer{}).Error; err != nil {
			return storagef("delete pointers", err)
		}
		if err := tx.Delete(&Branch{}, branch.ID).Error; err != nil {
			return storagef("delete branch", err)
		}
		return nil
	})
}

// SetPointer points (branch, file) at a version, inserting or overwriting
// atomically, and appends the change to the branch version log.
func (g *BranchGraph) SetPointer(branchID, fileID, versionID int64, versionNumber int, commitMessage string) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		pointer := BranchFilePointer{
			BranchID:      branchID,
			FileID:        fileID,
			VersionID:     versionID,
			VersionNumber: versionNumber,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "branch_id"}, {Name: "file_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"version_id", "version_number", "updated_at"}),
		}).Create(&pointer).Error
		if err != nil {
			return storagef("upsert pointer", err)
		}

		entry := BranchVersionLogEntry{
			ChangeID:      uuid.NewString(),
			BranchID:      branchID,
			FileID:        fileID,
			VersionID:     versionID,
			VersionNumber: versionNumber,
			CommitMessage: commitMessage,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return storagef("append version log", err)
		}
		return nil
	})
}

// GetPointer returns the pointer for (branch, file), or ErrNotFound if the
// file was never added to the branch.
func (g *BranchGraph) GetPointer(branchID, fileID int64) (*BranchFilePointer, error) {
	var pointer BranchFilePointer
	err := g.db.Where("branch_id = ? AND file_id = ?", branchID, fileID).First(&pointer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("file %d has no pointer in branch %d", fileID, branchID)
	}
	if err != nil {
		return nil, storagef("get pointer", err)
	}
	return &pointer, nil
}

// ListPointers returns the branch's full pointer set ordered by file id.
func (g *BranchGraph) ListPointers(branchID int64) ([]BranchFilePointer, error) {
	var pointers []BranchFilePointer
	err := g.db.Where("branch_id = ?", branchID).Order("file_id ASC").Find(&pointers).Error
	if err != nil {
		return nil, storagef("list pointers", err)
	}
	return pointers, nil
}

// History returns the branch's version log, newest first.
func (g *BranchGraph) History(branchID int64) ([]BranchVersionLogEntry, error) {
	var entries []BranchVersionLogEntry
	err := g.db.Where("branch_id = ?", branchID).
		Order("created_at DESC").Order("id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, storagef("branch history", err)
	}
	return entries, nil
}
