package vcs

import (
	"errors"

	"gorm.io/gorm"
)

// Decision classifies what a merge should do with one file.
type Decision string

const (
	// DecisionNone: both branches present the identical version, or both
	// independently converged on identical content. Nothing to resolve; a
	// merge still adopts the source's version id when the ids differ.
	DecisionNone Decision = "none"
	// DecisionAdd: the file exists only in the source branch. Copy on merge.
	DecisionAdd Decision = "add"
	// DecisionFastForward: only the source moved past the ancestor. Adopt
	// the source version, no conflict.
	DecisionFastForward Decision = "fast_forward"
	// DecisionKeepTarget: only the target moved past the ancestor. The file
	// is excluded from the merge's copy set.
	DecisionKeepTarget Decision = "keep_target"
	// DecisionConflict: both sides changed the file in diverging ways.
	// Requires a conflict record and manual attention.
	DecisionConflict Decision = "conflict"
)

// FileDecision is the detector's verdict for one file in the source branch.
type FileDecision struct {
	FileID   int64
	Decision Decision
	Source   BranchFilePointer
	Target   *BranchFilePointer
}

// ConflictDetector decides, per file touched on two branches, whether a
// merge can proceed automatically or needs a conflict record.
type ConflictDetector struct {
	db *gorm.DB
}

// NewConflictDetector creates a detector bound to the given store handle.
func NewConflictDetector(db *gorm.DB) *ConflictDetector {
	return &ConflictDetector{db: db}
}

// Plan evaluates every file in the source branch's pointer set, ordered by
// file id. Ancestor resolution prefers the source pointer's base snapshot
// taken at branch creation; for pointers that predate the snapshot field it
// falls back to the parent branch's live pointer. When no ancestor can be
// established, content-hash equality is the final authority and absence of
// information never defaults to "conflict".
func (d *ConflictDetector) Plan(source, target *Branch) ([]FileDecision, error) {
	sourcePointers, err := NewBranchGraph(d.db).ListPointers(source.ID)
	if err != nil {
		return nil, err
	}

	targetByFile, err := d.pointersByFile(target.ID)
	if err != nil {
		return nil, err
	}

	// Live pointers of the source's parent branch, the pre-snapshot
	// ancestor approximation. Loaded lazily only when some source pointer
	// is missing its base.
	var parentByFile map[int64]BranchFilePointer

	var decisions []FileDecision
	for _, sp := range sourcePointers {
		fd := FileDecision{FileID: sp.FileID, Source: sp}

		tp, inTarget := targetByFile[sp.FileID]
		if !inTarget {
			fd.Decision = DecisionAdd
			decisions = append(decisions, fd)
			continue
		}
		fd.Target = &tp

		if sp.VersionID == tp.VersionID {
			fd.Decision = DecisionNone
			decisions = append(decisions, fd)
			continue
		}

		ancestorID := sp.BaseVersionID
		if ancestorID == nil && source.ParentBranchID != nil {
			if *source.ParentBranchID == target.ID {
				id := tp.VersionID
				ancestorID = &id
			} else {
				if parentByFile == nil {
					parentByFile, err = d.pointersByFile(*source.ParentBranchID)
					if err != nil {
						return nil, err
					}
				}
				if pp, ok := parentByFile[sp.FileID]; ok {
					id := pp.VersionID
					ancestorID = &id
				}
			}
		}

		fd.Decision, err = d.decide(&sp, &tp, ancestorID)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, fd)
	}
	return decisions, nil
}

// Conflicts filters a plan down to the files needing conflict records.
func Conflicts(plan []FileDecision) []FileDecision {
	var out []FileDecision
	for _, fd := range plan {
		if fd.Decision == DecisionConflict {
			out = append(out, fd)
		}
	}
	return out
}

// decide applies the fast-forward rule on version identity, then falls back
// to content hashes.
func (d *ConflictDetector) decide(sp, tp *BranchFilePointer, ancestorID *int64) (Decision, error) {
	if ancestorID != nil {
		if tp.VersionID == *ancestorID {
			return DecisionFastForward, nil
		}
		if sp.VersionID == *ancestorID {
			return DecisionKeepTarget, nil
		}
	}

	sourceHash, err := d.versionHash(sp.VersionID)
	if err != nil {
		return "", err
	}
	targetHash, err := d.versionHash(tp.VersionID)
	if err != nil {
		return "", err
	}
	if sourceHash == targetHash {
		// Independently converged on identical content.
		return DecisionNone, nil
	}

	if ancestorID != nil {
		ancestorHash, err := d.versionHash(*ancestorID)
		if err == nil {
			if targetHash == ancestorHash {
				return DecisionFastForward, nil
			}
			if sourceHash == ancestorHash {
				return DecisionKeepTarget, nil
			}
		} else if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}

	return DecisionConflict, nil
}

func (d *ConflictDetector) versionHash(versionID int64) (string, error) {
	var version FileVersion
	err := d.db.Select("id", "content_hash").Where("id = ?", versionID).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", notFoundf("version %d", versionID)
	}
	if err != nil {
		return "", storagef("load version hash", err)
	}
	return version.ContentHash, nil
}

func (d *ConflictDetector) pointersByFile(branchID int64) (map[int64]BranchFilePointer, error) {
	pointers, err := NewBranchGraph(d.db).ListPointers(branchID)
	if err != nil {
		return nil, err
	}
	byFile := make(map[int64]BranchFilePointer, len(pointers))
	for _, p := range pointers {
		byFile[p.FileID] = p
	}
	return byFile, nil
}
