package vcs

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"gorm.io/gorm"
)

// MergeCoordinator drives a merge request's lifecycle: conflict detection at
// creation, per-conflict resolution, and the final pointer rewrite.
type MergeCoordinator struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewMergeCoordinator creates a coordinator bound to the given store handle.
func NewMergeCoordinator(db *gorm.DB, logger *slog.Logger) *MergeCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &MergeCoordinator{db: db, log: logger}
}

// CreateMergeRequest runs conflict detection once, persists the request and
// one conflict row per detected conflict, and sets the status to open or
// conflicts accordingly. Conflicts are never auto-resolved here.
func (m *MergeCoordinator) CreateMergeRequest(repoID int64, source, target *Branch, title, description, createdBy string) (*MergeRequest, []MergeConflict, error) {
	if title == "" {
		return nil, nil, validationf("merge request title is required")
	}

	plan, err := NewConflictDetector(m.db).Plan(source, target)
	if err != nil {
		return nil, nil, err
	}
	conflicted := Conflicts(plan)

	status := MergeStatusOpen
	if len(conflicted) > 0 {
		status = MergeStatusConflicts
	}

	request := &MergeRequest{
		RepositoryID:   repoID,
		SourceBranchID: source.ID,
		TargetBranchID: target.ID,
		Title:          title,
		Description:    description,
		Status:         status,
		HasConflicts:   len(conflicted) > 0,
		CreatedBy:      createdBy,
	}

	var conflicts []MergeConflict
	err = m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(request).Error; err != nil {
			return storagef("create merge request", err)
		}
		if len(conflicted) == 0 {
			return nil
		}
		conflicts = make([]MergeConflict, len(conflicted))
		for i, fd := range conflicted {
			conflicts[i] = MergeConflict{
				MergeRequestID:  request.ID,
				FileID:          fd.FileID,
				SourceVersionID: fd.Source.VersionID,
				TargetVersionID: fd.Target.VersionID,
				ConflictType:    "content",
			}
		}
		if err := tx.Create(&conflicts).Error; err != nil {
			return storagef("create conflict records", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	m.log.Info("merge request created",
		"merge_request_id", request.ID,
		"source_branch", source.Name,
		"target_branch", target.Name,
		"conflicts", len(conflicts))
	return request, conflicts, nil
}

// Resolution is the outcome of resolving one conflict.
type Resolution struct {
	Conflict        *MergeConflict
	ResolvedVersion int64
	VersionNumber   int
}

// ResolveConflict applies a resolution strategy to a single conflict and
// marks it resolved. "ours" keeps the target's version untouched; "theirs"
// repoints the target at the source's version; "manual" commits the given
// content as a new version parented on the target's conflicted version.
func (m *MergeCoordinator) ResolveConflict(conflict *MergeConflict, strategy ResolutionStrategy, resolvedContent string) (*Resolution, error) {
	if conflict.Resolved {
		return nil, invalidOpf("conflict %d is already resolved", conflict.ID)
	}

	var request MergeRequest
	err := m.db.First(&request, conflict.MergeRequestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("merge request %d", conflict.MergeRequestID)
	}
	if err != nil {
		return nil, storagef("load merge request", err)
	}
	if request.Status.IsTerminal() {
		return nil, invalidOpf("merge request %d is %s", request.ID, request.Status)
	}

	resolution := &Resolution{Conflict: conflict}
	err = m.db.Transaction(func(tx *gorm.DB) error {
		graph := NewBranchGraph(tx)

		switch strategy {
		case ResolveOurs:
			target, err := versionByID(tx, conflict.TargetVersionID)
			if err != nil {
				return err
			}
			resolution.ResolvedVersion = target.ID
			resolution.VersionNumber = target.VersionNumber

		case ResolveTheirs:
			source, err := versionByID(tx, conflict.SourceVersionID)
			if err != nil {
				return err
			}
			if err := graph.SetPointer(request.TargetBranchID, conflict.FileID,
				source.ID, source.VersionNumber, "Merge conflict resolution (theirs)"); err != nil {
				return err
			}
			resolution.ResolvedVersion = source.ID
			resolution.VersionNumber = source.VersionNumber

		case ResolveManual:
			if resolvedContent == "" {
				return validationf("manual resolution requires resolved content")
			}
			ledger := NewVersionLedger(tx)
			version, err := ledger.CreateNextVersionFrom(conflict.FileID, conflict.TargetVersionID,
				Blob{Text: resolvedContent}, "Merge conflict resolution (manual)")
			if err != nil {
				return err
			}
			if err := graph.SetPointer(request.TargetBranchID, conflict.FileID,
				version.ID, version.VersionNumber, "Merge conflict resolution (manual)"); err != nil {
				return err
			}
			resolution.ResolvedVersion = version.ID
			resolution.VersionNumber = version.VersionNumber

		default:
			return validationf("unknown resolution strategy %q", strategy)
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"resolved":            true,
			"resolution_strategy": strategy,
			"resolved_content":    resolvedContent,
			"resolved_at":         &now,
		}
		if err := tx.Model(&MergeConflict{}).Where("id = ?", conflict.ID).
			Updates(updates).Error; err != nil {
			return storagef("mark conflict resolved", err)
		}
		conflict.Resolved = true
		conflict.ResolutionStrategy = strategy
		conflict.ResolvedContent = resolvedContent
		conflict.ResolvedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("conflict resolved",
		"conflict_id", conflict.ID,
		"merge_request_id", request.ID,
		"strategy", strategy)
	return resolution, nil
}

// ExecuteMerge rewrites the target branch's pointers from the source branch
// and transitions the request to merged. The whole pointer copy runs in one
// transaction so a mid-copy failure leaves the request untouched. Files with
// conflict records are skipped (their pointers were already updated during
// resolution), and files where only the target advanced keep the target's
// version.
func (m *MergeCoordinator) ExecuteMerge(request *MergeRequest, mergedBy string) error {
	if request.Status.IsTerminal() {
		return invalidOpf("merge request %d is already %s", request.ID, request.Status)
	}

	var unresolved int64
	err := m.db.Model(&MergeConflict{}).
		Where("merge_request_id = ? AND resolved = ?", request.ID, false).
		Count(&unresolved).Error
	if err != nil {
		return storagef("count unresolved conflicts", err)
	}
	if unresolved > 0 {
		return fmt.Errorf("%d unresolved conflicts: %w", unresolved, ErrMergeBlocked)
	}

	source, err := branchByID(m.db, request.SourceBranchID)
	if err != nil {
		return err
	}
	target, err := branchByID(m.db, request.TargetBranchID)
	if err != nil {
		return err
	}

	err = m.db.Transaction(func(tx *gorm.DB) error {
		var conflicts []MergeConflict
		if err := tx.Where("merge_request_id = ?", request.ID).Find(&conflicts).Error; err != nil {
			return storagef("load conflict records", err)
		}
		conflictedFiles := mapset.NewThreadUnsafeSet[int64]()
		for _, c := range conflicts {
			conflictedFiles.Add(c.FileID)
		}

		// Re-evaluate per-file decisions against the current pointers so
		// files where the target is already ahead are never regressed.
		plan, err := NewConflictDetector(tx).Plan(source, target)
		if err != nil {
			return err
		}

		graph := NewBranchGraph(tx)
		message := fmt.Sprintf("Merge branch %q into %q", source.Name, target.Name)
		for _, fd := range plan {
			if conflictedFiles.Contains(fd.FileID) {
				continue
			}
			switch fd.Decision {
			case DecisionKeepTarget:
				continue
			case DecisionNone:
				// Converged content still adopts the source's version id;
				// only truly identical pointers have nothing to copy.
				if fd.Target != nil && fd.Source.VersionID == fd.Target.VersionID {
					continue
				}
			case DecisionConflict:
				// Diverged after the request was opened; the recorded
				// contract is to copy everything outside the conflict set.
				m.log.Warn("unrecorded divergence during merge",
					"merge_request_id", request.ID, "file_id", fd.FileID)
			}
			if err := graph.SetPointer(target.ID, fd.FileID,
				fd.Source.VersionID, fd.Source.VersionNumber, message); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		result := tx.Model(&MergeRequest{}).
			Where("id = ? AND status NOT IN ?", request.ID,
				[]MergeRequestStatus{MergeStatusMerged, MergeStatusClosed}).
			Updates(map[string]any{
				"status":    MergeStatusMerged,
				"merged_by": mergedBy,
				"merged_at": &now,
			})
		if result.Error != nil {
			return storagef("mark merged", result.Error)
		}
		if result.RowsAffected == 0 {
			return invalidOpf("merge request %d reached a terminal state concurrently", request.ID)
		}
		request.Status = MergeStatusMerged
		request.MergedBy = mergedBy
		request.MergedAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	m.log.Info("merge executed",
		"merge_request_id", request.ID,
		"source_branch", source.Name,
		"target_branch", target.Name,
		"merged_by", mergedBy)
	return nil
}

// Close abandons an unmerged request. Terminal states cannot be reopened.
func (m *MergeCoordinator) Close(request *MergeRequest) error {
	if request.Status.IsTerminal() {
		return invalidOpf("merge request %d is already %s", request.ID, request.Status)
	}
	if err := m.db.Model(&MergeRequest{}).Where("id = ?", request.ID).
		Update("status", MergeStatusClosed).Error; err != nil {
		return storagef("close merge request", err)
	}
	request.Status = MergeStatusClosed
	return nil
}

func versionByID(db *gorm.DB, versionID int64) (*FileVersion, error) {
	var version FileVersion
	err := db.First(&version, versionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("version %d", versionID)
	}
	if err != nil {
		return nil, storagef("load version", err)
	}
	return &version, nil
}

func branchByID(db *gorm.DB, branchID int64) (*Branch, error) {
	var branch Branch
	err := db.First(&branch, branchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("branch %d", branchID)
	}
	if err != nil {
		return nil, storagef("load branch", err)
	}
	return &branch, nil
}
