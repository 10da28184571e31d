package vcs

import "time"

// Repository is the top-level container for files and branches.
type Repository struct {
	ID          int64     `gorm:"primaryKey;column:id" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	OwnerID     string    `gorm:"column:owner_id;index;not null" json:"owner_id"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the GORM table name.
func (Repository) TableName() string { return "repositories" }

// File is a named entry in a repository. CurrentVersion is the highest
// version number ever created for the file, across all branches; it is 0
// until the first content upload and never decremented.
type File struct {
	ID             int64     `gorm:"primaryKey;column:id" json:"id"`
	RepositoryID   int64     `gorm:"column:repository_id;uniqueIndex:idx_file_repo_name,priority:1;not null" json:"repository_id"`
	Filename       string    `gorm:"column:filename;uniqueIndex:idx_file_repo_name,priority:2;not null" json:"filename"`
	CurrentVersion int       `gorm:"column:current_version;not null;default:0" json:"current_version"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the GORM table name.
func (File) TableName() string { return "files" }

// FileVersion is one immutable content snapshot of a file. Version numbers
// are 1-based and strictly increasing per file; the unique index backstops
// concurrent writers racing on the same next number.
type FileVersion struct {
	ID              int64     `gorm:"primaryKey;column:id" json:"id"`
	FileID          int64     `gorm:"column:file_id;uniqueIndex:idx_version_file_number,priority:1;not null" json:"file_id"`
	VersionNumber   int       `gorm:"column:version_number;uniqueIndex:idx_version_file_number,priority:2;not null" json:"version_number"`
	ParentVersionID *int64    `gorm:"column:parent_version_id" json:"parent_version_id,omitempty"`
	CommitMessage   string    `gorm:"column:commit_message" json:"commit_message,omitempty"`
	ContentText     string    `gorm:"column:content_text;type:text" json:"content_text,omitempty"`
	ContentBinary   []byte    `gorm:"column:content_binary" json:"content_binary,omitempty"`
	IsFullContent   bool      `gorm:"column:is_full_content;not null;default:true" json:"is_full_content"`
	ContentHash     string    `gorm:"column:content_hash;not null" json:"content_hash"`
	FileSize        int64     `gorm:"column:file_size;not null" json:"file_size"`
	MimeType        string    `gorm:"column:mime_type;not null" json:"mime_type"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName returns the GORM table name.
func (FileVersion) TableName() string { return "file_versions" }

// IsBinary reports whether the version carries binary rather than text
// content. Binary versions cannot be diffed.
func (v *FileVersion) IsBinary() bool { return len(v.ContentBinary) > 0 }

// Branch is a named, mutable pointer set selecting one version per file.
// Exactly one branch per repository has IsDefault set; it cannot be deleted.
type Branch struct {
	ID             int64     `gorm:"primaryKey;column:id" json:"id"`
	RepositoryID   int64     `gorm:"column:repository_id;uniqueIndex:idx_branch_repo_name,priority:1;not null" json:"repository_id"`
	Name           string    `gorm:"column:name;uniqueIndex:idx_branch_repo_name,priority:2;not null" json:"name"`
	ParentBranchID *int64    `gorm:"column:parent_branch_id" json:"parent_branch_id,omitempty"`
	IsDefault      bool      `gorm:"column:is_default;not null;default:false" json:"is_default"`
	CreatedBy      string    `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the GORM table name.
func (Branch) TableName() string { return "branches" }

// BranchFilePointer maps (branch, file) to the version the branch presents.
// BaseVersionID is the version the pointer was cloned from at branch
// creation time and serves as the ancestor for conflict reasoning; it is
// nil for files added to the branch after creation.
type BranchFilePointer struct {
	ID            int64     `gorm:"primaryKey;column:id" json:"id"`
	BranchID      int64     `gorm:"column:branch_id;uniqueIndex:idx_pointer_branch_file,priority:1;not null" json:"branch_id"`
	FileID        int64     `gorm:"column:file_id;uniqueIndex:idx_pointer_branch_file,priority:2;not null" json:"file_id"`
	VersionID     int64     `gorm:"column:version_id;not null" json:"version_id"`
	VersionNumber int       `gorm:"column:version_number;not null" json:"version_number"`
	BaseVersionID *int64    `gorm:"column:base_version_id" json:"base_version_id,omitempty"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the GORM table name.
func (BranchFilePointer) TableName() string { return "branch_file_pointers" }

// BranchVersionLogEntry is the append-only audit log of pointer changes on
// a branch. Entries are never updated and survive branch deletion.
type BranchVersionLogEntry struct {
	ID            int64     `gorm:"primaryKey;column:id" json:"id"`
	ChangeID      string    `gorm:"column:change_id;type:varchar(36);not null" json:"change_id"`
	BranchID      int64     `gorm:"column:branch_id;index:idx_branch_versions_branch;not null" json:"branch_id"`
	FileID        int64     `gorm:"column:file_id;index;not null" json:"file_id"`
	VersionID     int64     `gorm:"column:version_id;not null" json:"version_id"`
	VersionNumber int       `gorm:"column:version_number;not null" json:"version_number"`
	CommitMessage string    `gorm:"column:commit_message" json:"commit_message,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName returns the GORM table name.
func (BranchVersionLogEntry) TableName() string { return "branch_versions" }

// MergeRequestStatus is the lifecycle state of a merge request.
type MergeRequestStatus string

const (
	MergeStatusOpen      MergeRequestStatus = "open"
	MergeStatusConflicts MergeRequestStatus = "conflicts"
	MergeStatusMerged    MergeRequestStatus = "merged"
	MergeStatusClosed    MergeRequestStatus = "closed"
)

// IsTerminal returns true for states a merge request cannot leave.
func (s MergeRequestStatus) IsTerminal() bool {
	return s == MergeStatusMerged || s == MergeStatusClosed
}

// MergeRequest asks for the source branch's pointers to be folded into the
// target branch.
type MergeRequest struct {
	ID             int64              `gorm:"primaryKey;column:id" json:"id"`
	RepositoryID   int64              `gorm:"column:repository_id;index;not null" json:"repository_id"`
	SourceBranchID int64              `gorm:"column:source_branch_id;not null" json:"source_branch_id"`
	TargetBranchID int64              `gorm:"column:target_branch_id;not null" json:"target_branch_id"`
	Title          string             `gorm:"column:title;not null" json:"title"`
	Description    string             `gorm:"column:description" json:"description,omitempty"`
	Status         MergeRequestStatus `gorm:"column:status;index;not null;default:open" json:"status"`
	HasConflicts   bool               `gorm:"column:has_conflicts;not null;default:false" json:"has_conflicts"`
	CreatedBy      string             `gorm:"column:created_by;not null" json:"created_by"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	MergedBy       string             `gorm:"column:merged_by" json:"merged_by,omitempty"`
	MergedAt       *time.Time         `gorm:"column:merged_at" json:"merged_at,omitempty"`
}

// TableName returns the GORM table name.
func (MergeRequest) TableName() string { return "merge_requests" }

// ResolutionStrategy selects how a single conflict is resolved.
type ResolutionStrategy string

const (
	ResolveOurs   ResolutionStrategy = "ours"
	ResolveTheirs ResolutionStrategy = "theirs"
	ResolveManual ResolutionStrategy = "manual"
)

// MergeConflict records one file whose versions diverged between the two
// branches of a merge request. Rows are created in bulk when the request is
// opened and mutated one by one as each conflict is resolved.
type MergeConflict struct {
	ID                 int64              `gorm:"primaryKey;column:id" json:"id"`
	MergeRequestID     int64              `gorm:"column:merge_request_id;index;not null" json:"merge_request_id"`
	FileID             int64              `gorm:"column:file_id;not null" json:"file_id"`
	SourceVersionID    int64              `gorm:"column:source_version_id;not null" json:"source_version_id"`
	TargetVersionID    int64              `gorm:"column:target_version_id;not null" json:"target_version_id"`
	ConflictType       string             `gorm:"column:conflict_type;not null;default:content" json:"conflict_type"`
	Resolved           bool               `gorm:"column:resolved;not null;default:false" json:"resolved"`
	ResolutionStrategy ResolutionStrategy `gorm:"column:resolution_strategy" json:"resolution_strategy,omitempty"`
	ResolvedContent    string             `gorm:"column:resolved_content;type:text" json:"resolved_content,omitempty"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	ResolvedAt         *time.Time         `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
}

// TableName returns the GORM table name.
func (MergeConflict) TableName() string { return "merge_conflicts" }
