package vcs

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gitlite/gitlite/pkg/content"
)

// lockForUpdate adds a row-level write lock where the dialect supports it.
// SQLite has no FOR UPDATE; its single-writer model serializes the
// transaction anyway.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Blob is the content payload for a new file version. Text and Binary are
// mutually exclusive; MimeType is optional and overrides inheritance.
type Blob struct {
	Text     string
	Binary   []byte
	MimeType string
}

// IsEmpty reports whether the blob carries no content at all.
func (b Blob) IsEmpty() bool { return b.Text == "" && len(b.Binary) == 0 }

func (b Blob) bytes() []byte {
	if len(b.Binary) > 0 {
		return b.Binary
	}
	return []byte(b.Text)
}

// VersionLedger creates immutable, monotonically numbered file versions.
// Construct it over the transaction handle the operation runs in.
type VersionLedger struct {
	db *gorm.DB
}

// NewVersionLedger creates a ledger bound to the given store handle.
func NewVersionLedger(db *gorm.DB) *VersionLedger {
	return &VersionLedger{db: db}
}

// CreateInitialVersion inserts version 1 for a file that has none yet and
// advances File.CurrentVersion to 1.
func (l *VersionLedger) CreateInitialVersion(file *File, blob Blob, mimeType, commitMessage string) (*FileVersion, error) {
	if blob.IsEmpty() {
		return nil, validationf("initial version of %q requires content", file.Filename)
	}
	if file.CurrentVersion != 0 {
		return nil, invalidOpf("file %q already has versions", file.Filename)
	}
	if mimeType == "" {
		mimeType = content.DetectMIMEType(file.Filename)
	}
	if commitMessage == "" {
		commitMessage = "Initial commit"
	}

	version := l.buildVersion(file.ID, 1, nil, blob, mimeType, commitMessage)
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(version).Error; err != nil {
			return storagef("create initial version", err)
		}
		if err := tx.Model(&File{}).Where("id = ?", file.ID).
			Update("current_version", 1).Error; err != nil {
			return storagef("advance current version", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	file.CurrentVersion = 1
	return version, nil
}

// CreateNextVersion inserts version N+1 derived from the file's current head
// version, inheriting its mime type unless the blob overrides it. The file
// row is locked for the duration of the transaction so two concurrent
// writers cannot claim the same version number.
func (l *VersionLedger) CreateNextVersion(fileID int64, blob Blob, commitMessage string) (*FileVersion, error) {
	return l.createNext(fileID, nil, blob, commitMessage)
}

// CreateNextVersionFrom is CreateNextVersion with an explicit parent version
// instead of the file's head. Used by manual conflict resolution, where the
// parent is the target branch's version rather than the global head.
func (l *VersionLedger) CreateNextVersionFrom(fileID, parentVersionID int64, blob Blob, commitMessage string) (*FileVersion, error) {
	return l.createNext(fileID, &parentVersionID, blob, commitMessage)
}

func (l *VersionLedger) createNext(fileID int64, parentID *int64, blob Blob, commitMessage string) (*FileVersion, error) {
	if blob.IsEmpty() {
		return nil, validationf("new version requires content")
	}

	var version *FileVersion
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var file File
		err := lockForUpdate(tx).Where("id = ?", fileID).First(&file).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("file %d", fileID)
		}
		if err != nil {
			return storagef("lock file", err)
		}

		parent, err := l.resolveParent(tx, &file, parentID)
		if err != nil {
			return err
		}

		mimeType := blob.MimeType
		if mimeType == "" && parent != nil {
			mimeType = parent.MimeType
		}
		if mimeType == "" {
			mimeType = content.DetectMIMEType(file.Filename)
		}

		var parentVersionID *int64
		if parent != nil {
			parentVersionID = &parent.ID
		}

		next := file.CurrentVersion + 1
		version = l.buildVersion(file.ID, next, parentVersionID, blob, mimeType, commitMessage)
		if err := tx.Create(version).Error; err != nil {
			return storagef(fmt.Sprintf("create version %d", next), err)
		}
		if err := tx.Model(&File{}).Where("id = ?", file.ID).
			Update("current_version", next).Error; err != nil {
			return storagef("advance current version", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

// resolveParent loads the version the new one derives from: the explicit
// parent when given, otherwise the file's head version. A file with no
// versions yet has no parent.
func (l *VersionLedger) resolveParent(tx *gorm.DB, file *File, parentID *int64) (*FileVersion, error) {
	var parent FileVersion
	var err error
	switch {
	case parentID != nil:
		err = tx.Where("id = ? AND file_id = ?", *parentID, file.ID).First(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("parent version %d of file %d", *parentID, file.ID)
		}
	case file.CurrentVersion > 0:
		err = tx.Where("file_id = ? AND version_number = ?", file.ID, file.CurrentVersion).
			First(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, storagef("load parent version", err)
	}
	return &parent, nil
}

// ListVersions returns all versions of a file ordered newest first, content
// columns omitted.
func (l *VersionLedger) ListVersions(fileID int64) ([]FileVersion, error) {
	var versions []FileVersion
	err := l.db.
		Select("id", "file_id", "version_number", "parent_version_id", "commit_message",
			"content_hash", "file_size", "mime_type", "created_at").
		Where("file_id = ?", fileID).
		Order("version_number DESC").
		Find(&versions).Error
	if err != nil {
		return nil, storagef("list versions", err)
	}
	return versions, nil
}

// GetVersion returns one version of a file by version number, with content.
func (l *VersionLedger) GetVersion(fileID int64, versionNumber int) (*FileVersion, error) {
	var version FileVersion
	err := l.db.Where("file_id = ? AND version_number = ?", fileID, versionNumber).
		First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("version %d of file %d", versionNumber, fileID)
	}
	if err != nil {
		return nil, storagef("get version", err)
	}
	return &version, nil
}

func (l *VersionLedger) buildVersion(fileID int64, number int, parentID *int64, blob Blob, mimeType, commitMessage string) *FileVersion {
	version := &FileVersion{
		FileID:          fileID,
		VersionNumber:   number,
		ParentVersionID: parentID,
		CommitMessage:   commitMessage,
		ContentHash:     content.Hash(blob.bytes()),
		FileSize:        content.Size(blob.bytes()),
		MimeType:        mimeType,
		IsFullContent:   true,
	}
	if len(blob.Binary) > 0 {
		version.ContentBinary = blob.Binary
	} else {
		version.ContentText = blob.Text
	}
	return version
}
