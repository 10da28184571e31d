package vcs

import (
	"errors"

	"gorm.io/gorm"

	"github.com/gitlite/gitlite/pkg/content"
	"github.com/gitlite/gitlite/pkg/diff"
)

// FileWithContent is a file plus the content of the version selected by the
// requested branch (or the file's head when no branch is given).
type FileWithContent struct {
	File
	VersionNumber int    `json:"version_number"`
	ContentText   string `json:"content_text,omitempty"`
	ContentBinary []byte `json:"content_binary,omitempty"`
	MimeType      string `json:"mime_type,omitempty"`
	FileSize      int64  `json:"file_size"`
}

// CreateFile creates a file in the repository, committing the blob as
// version 1 when content is given. The new version is pointed to by the
// named branch, or the default branch when branchName is empty.
func (s *Service) CreateFile(repoID int64, filename string, blob Blob, commitMessage, branchName string) (*File, error) {
	if filename == "" {
		return nil, validationf("filename is required")
	}
	if _, err := s.GetRepository(repoID); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&File{}).
		Where("repository_id = ? AND filename = ?", repoID, filename).
		Count(&count).Error; err != nil {
		return nil, storagef("check filename", err)
	}
	if count > 0 {
		return nil, alreadyExistsf("file %q in repository %d", filename, repoID)
	}

	branch, err := s.resolveBranch(repoID, branchName)
	if err != nil {
		return nil, err
	}

	file := &File{RepositoryID: repoID, Filename: filename}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(file).Error; err != nil {
			return storagef("create file", err)
		}
		if blob.IsEmpty() {
			return nil
		}
		version, err := NewVersionLedger(tx).CreateInitialVersion(file, blob, blob.MimeType, commitMessage)
		if err != nil {
			return err
		}
		return NewBranchGraph(tx).SetPointer(branch.ID, file.ID,
			version.ID, version.VersionNumber, version.CommitMessage)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("file created",
		"repository_id", repoID, "file_id", file.ID,
		"filename", filename, "branch", branch.Name)
	return file, nil
}

// UpdateFile commits the blob as the file's next version and moves the
// branch pointer (default branch when branchName is empty) onto it.
func (s *Service) UpdateFile(repoID, fileID int64, blob Blob, commitMessage, branchName string) (*FileWithContent, error) {
	if _, err := s.fileInRepo(repoID, fileID); err != nil {
		return nil, err
	}
	branch, err := s.resolveBranch(repoID, branchName)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		version, err := NewVersionLedger(tx).CreateNextVersion(fileID, blob, commitMessage)
		if err != nil {
			return err
		}
		return NewBranchGraph(tx).SetPointer(branch.ID, fileID,
			version.ID, version.VersionNumber, commitMessage)
	})
	if err != nil {
		return nil, err
	}

	return s.GetFile(repoID, fileID, branchName)
}

// GetFile returns a file with the content of the version the branch points
// to, or the head version when branchName is empty.
func (s *Service) GetFile(repoID, fileID int64, branchName string) (*FileWithContent, error) {
	file, err := s.fileInRepo(repoID, fileID)
	if err != nil {
		return nil, err
	}

	versionNumber := file.CurrentVersion
	if branchName != "" {
		branch, err := s.branchByName(repoID, branchName)
		if err != nil {
			return nil, err
		}
		pointer, err := NewBranchGraph(s.db).GetPointer(branch.ID, fileID)
		if err != nil {
			return nil, err
		}
		versionNumber = pointer.VersionNumber
	}

	result := &FileWithContent{File: *file, VersionNumber: versionNumber}
	if versionNumber == 0 {
		return result, nil
	}

	version, err := NewVersionLedger(s.db).GetVersion(fileID, versionNumber)
	if err != nil {
		return nil, err
	}
	result.ContentText = version.ContentText
	result.ContentBinary = version.ContentBinary
	result.MimeType = version.MimeType
	result.FileSize = version.FileSize
	return result, nil
}

// ListFiles returns the repository's files; scoped to a branch's pointer
// set when branchName is non-empty.
func (s *Service) ListFiles(repoID int64, branchName string) ([]File, error) {
	if _, err := s.GetRepository(repoID); err != nil {
		return nil, err
	}

	var files []File
	if branchName == "" {
		err := s.db.Where("repository_id = ?", repoID).Order("filename ASC").Find(&files).Error
		if err != nil {
			return nil, storagef("list files", err)
		}
		return files, nil
	}

	branch, err := s.branchByName(repoID, branchName)
	if err != nil {
		return nil, err
	}
	pointerFiles := s.db.Model(&BranchFilePointer{}).Select("file_id").
		Where("branch_id = ?", branch.ID)
	err = s.db.Where("id IN (?)", pointerFiles).Order("filename ASC").Find(&files).Error
	if err != nil {
		return nil, storagef("list branch files", err)
	}
	return files, nil
}

// DeleteFile removes a file with its versions, pointers and log entries.
func (s *Service) DeleteFile(repoID, fileID int64) error {
	if _, err := s.fileInRepo(repoID, fileID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			name  string
			model any
		}{
			{"version logs", &BranchVersionLogEntry{}},
			{"pointers", &BranchFilePointer{}},
			{"versions", &FileVersion{}},
		}
		for _, step := range steps {
			if err := tx.Where("file_id = ?", fileID).Delete(step.model).Error; err != nil {
				return storagef("delete "+step.name, err)
			}
		}
		if err := tx.Delete(&File{}, fileID).Error; err != nil {
			return storagef("delete file", err)
		}
		return nil
	})
}

// ListVersions returns version metadata for a file, newest first. With a
// branch name, only the version that branch points to is returned.
func (s *Service) ListVersions(repoID, fileID int64, branchName string) ([]FileVersion, error) {
	if _, err := s.fileInRepo(repoID, fileID); err != nil {
		return nil, err
	}

	ledger := NewVersionLedger(s.db)
	if branchName == "" {
		return ledger.ListVersions(fileID)
	}

	branch, err := s.branchByName(repoID, branchName)
	if err != nil {
		return nil, err
	}
	pointer, err := NewBranchGraph(s.db).GetPointer(branch.ID, fileID)
	if err != nil {
		return nil, err
	}
	version, err := ledger.GetVersion(fileID, pointer.VersionNumber)
	if err != nil {
		return nil, err
	}
	version.ContentText = ""
	version.ContentBinary = nil
	return []FileVersion{*version}, nil
}

// GetVersion returns one version of a file, including content.
func (s *Service) GetVersion(repoID, fileID int64, versionNumber int) (*FileVersion, error) {
	if _, err := s.fileInRepo(repoID, fileID); err != nil {
		return nil, err
	}
	return NewVersionLedger(s.db).GetVersion(fileID, versionNumber)
}

// VersionDiff is the three-way rendering of the changes between two
// versions of the same file.
type VersionDiff struct {
	FileID     int64                 `json:"file_id"`
	Filename   string                `json:"filename"`
	Version1   int                   `json:"version1"`
	Version2   int                   `json:"version2"`
	Unified    string                `json:"unified"`
	SideBySide diff.SideBySideResult `json:"side_by_side"`
	Compact    diff.CompactResult    `json:"compact"`
}

// DiffVersions compares two text versions of a file. Binary versions cannot
// be diffed; absent text is treated as empty.
func (s *Service) DiffVersions(repoID, fileID int64, v1, v2 int) (*VersionDiff, error) {
	file, err := s.fileInRepo(repoID, fileID)
	if err != nil {
		return nil, err
	}

	ledger := NewVersionLedger(s.db)
	version1, err := ledger.GetVersion(fileID, v1)
	if err != nil {
		return nil, err
	}
	version2, err := ledger.GetVersion(fileID, v2)
	if err != nil {
		return nil, err
	}
	if version1.IsBinary() || version2.IsBinary() ||
		!content.IsText(version1.MimeType) || !content.IsText(version2.MimeType) {
		return nil, validationf("only text versions can be diffed")
	}

	return &VersionDiff{
		FileID:     fileID,
		Filename:   file.Filename,
		Version1:   v1,
		Version2:   v2,
		Unified:    diff.Unified(version1.ContentText, version2.ContentText, diff.DefaultContextLines),
		SideBySide: diff.SideBySide(version1.ContentText, version2.ContentText),
		Compact:    diff.Compact(version1.ContentText, version2.ContentText),
	}, nil
}

// fileInRepo loads a file and checks it belongs to the repository.
func (s *Service) fileInRepo(repoID, fileID int64) (*File, error) {
	var file File
	err := s.db.Where("id = ? AND repository_id = ?", fileID, repoID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("file %d in repository %d", fileID, repoID)
	}
	if err != nil {
		return nil, storagef("get file", err)
	}
	return &file, nil
}
