package vcs

import (
	"errors"

	"gorm.io/gorm"
)

// ConflictInfo is a detected conflict joined with its filename, as returned
// when a merge request is created.
type ConflictInfo struct {
	ConflictID      int64  `json:"conflict_id"`
	FileID          int64  `json:"file_id"`
	Filename        string `json:"filename"`
	ConflictType    string `json:"conflict_type"`
	SourceVersionID int64  `json:"source_version_id"`
	TargetVersionID int64  `json:"target_version_id"`
	SourceVersion   int    `json:"source_version"`
	TargetVersion   int    `json:"target_version"`
}

// MergeRequestDetail is a merge request with branch names and, right after
// creation, the detected conflicts.
type MergeRequestDetail struct {
	MergeRequest
	SourceBranchName string         `json:"source_branch_name"`
	TargetBranchName string         `json:"target_branch_name"`
	Conflicts        []ConflictInfo `json:"conflicts,omitempty"`
}

// CreateMergeRequest opens a request to merge source into target, running
// conflict detection and persisting one conflict row per diverged file.
func (s *Service) CreateMergeRequest(repoID int64, sourceName, targetName, title, description, createdBy string) (*MergeRequestDetail, error) {
	if _, err := s.GetRepository(repoID); err != nil {
		return nil, err
	}
	source, err := s.branchByName(repoID, sourceName)
	if err != nil {
		return nil, err
	}
	target, err := s.branchByName(repoID, targetName)
	if err != nil {
		return nil, err
	}

	request, conflicts, err := NewMergeCoordinator(s.db, s.log).
		CreateMergeRequest(repoID, source, target, title, description, createdBy)
	if err != nil {
		return nil, err
	}

	detail := &MergeRequestDetail{
		MergeRequest:     *request,
		SourceBranchName: source.Name,
		TargetBranchName: target.Name,
	}
	for _, c := range conflicts {
		info, err := s.conflictInfo(&c)
		if err != nil {
			return nil, err
		}
		detail.Conflicts = append(detail.Conflicts, *info)
	}
	return detail, nil
}

// ListMergeRequests returns the repository's merge requests, newest first,
// optionally filtered by status.
func (s *Service) ListMergeRequests(repoID int64, status MergeRequestStatus) ([]MergeRequestDetail, error) {
	if _, err := s.GetRepository(repoID); err != nil {
		return nil, err
	}

	query := s.db.Where("repository_id = ?", repoID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var requests []MergeRequest
	if err := query.Order("created_at DESC").Order("id DESC").Find(&requests).Error; err != nil {
		return nil, storagef("list merge requests", err)
	}

	details := make([]MergeRequestDetail, 0, len(requests))
	for _, request := range requests {
		source, err := branchByID(s.db, request.SourceBranchID)
		if err != nil {
			return nil, err
		}
		target, err := branchByID(s.db, request.TargetBranchID)
		if err != nil {
			return nil, err
		}
		details = append(details, MergeRequestDetail{
			MergeRequest:     request,
			SourceBranchName: source.Name,
			TargetBranchName: target.Name,
		})
	}
	return details, nil
}

// GetMergeRequest returns one merge request with its conflicts.
func (s *Service) GetMergeRequest(mergeRequestID int64) (*MergeRequestDetail, error) {
	request, err := s.mergeRequestByID(mergeRequestID)
	if err != nil {
		return nil, err
	}
	source, err := branchByID(s.db, request.SourceBranchID)
	if err != nil {
		return nil, err
	}
	target, err := branchByID(s.db, request.TargetBranchID)
	if err != nil {
		return nil, err
	}

	var conflicts []MergeConflict
	if err := s.db.Where("merge_request_id = ?", request.ID).
		Order("id ASC").Find(&conflicts).Error; err != nil {
		return nil, storagef("load conflicts", err)
	}

	detail := &MergeRequestDetail{
		MergeRequest:     *request,
		SourceBranchName: source.Name,
		TargetBranchName: target.Name,
	}
	for _, c := range conflicts {
		info, err := s.conflictInfo(&c)
		if err != nil {
			return nil, err
		}
		detail.Conflicts = append(detail.Conflicts, *info)
	}
	return detail, nil
}

// ExecuteMerge finalizes a merge request, rewriting the target branch's
// pointers. Fails with ErrMergeBlocked while unresolved conflicts remain.
func (s *Service) ExecuteMerge(mergeRequestID int64, mergedBy string) (*MergeRequest, error) {
	request, err := s.mergeRequestByID(mergeRequestID)
	if err != nil {
		return nil, err
	}
	if err := NewMergeCoordinator(s.db, s.log).ExecuteMerge(request, mergedBy); err != nil {
		return nil, err
	}
	return request, nil
}

// CloseMergeRequest abandons an open merge request.
func (s *Service) CloseMergeRequest(mergeRequestID int64) (*MergeRequest, error) {
	request, err := s.mergeRequestByID(mergeRequestID)
	if err != nil {
		return nil, err
	}
	if err := NewMergeCoordinator(s.db, s.log).Close(request); err != nil {
		return nil, err
	}
	return request, nil
}

// ResolveConflict applies a resolution strategy to one conflict.
func (s *Service) ResolveConflict(conflictID int64, strategy ResolutionStrategy, resolvedContent string) (*Resolution, error) {
	var conflict MergeConflict
	err := s.db.First(&conflict, conflictID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("conflict %d", conflictID)
	}
	if err != nil {
		return nil, storagef("load conflict", err)
	}
	return NewMergeCoordinator(s.db, s.log).ResolveConflict(&conflict, strategy, resolvedContent)
}

func (s *Service) mergeRequestByID(id int64) (*MergeRequest, error) {
	var request MergeRequest
	err := s.db.First(&request, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("merge request %d", id)
	}
	if err != nil {
		return nil, storagef("load merge request", err)
	}
	return &request, nil
}

// conflictInfo joins a conflict row with its filename and version numbers.
func (s *Service) conflictInfo(conflict *MergeConflict) (*ConflictInfo, error) {
	var file File
	err := s.db.First(&file, conflict.FileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("file %d", conflict.FileID)
	}
	if err != nil {
		return nil, storagef("load conflicted file", err)
	}
	sourceVersion, err := versionByID(s.db, conflict.SourceVersionID)
	if err != nil {
		return nil, err
	}
	targetVersion, err := versionByID(s.db, conflict.TargetVersionID)
	if err != nil {
		return nil, err
	}
	return &ConflictInfo{
		ConflictID:      conflict.ID,
		FileID:          conflict.FileID,
		Filename:        file.Filename,
		ConflictType:    conflict.ConflictType,
		SourceVersionID: conflict.SourceVersionID,
		TargetVersionID: conflict.TargetVersionID,
		SourceVersion:   sourceVersion.VersionNumber,
		TargetVersion:   targetVersion.VersionNumber,
	}, nil
}
