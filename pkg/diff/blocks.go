package diff

import "fmt"

// BlockType tags one region of a side-by-side comparison.
type BlockType string

const (
	BlockEqual  BlockType = "equal"
	BlockInsert BlockType = "insert"
	BlockDelete BlockType = "delete"
	BlockModify BlockType = "modify"
)

// Block is one aligned region of the comparison. Line ranges are 1-based and
// inclusive; a side with no lines has zero Start/End.
type Block struct {
	Type     BlockType `json:"type"`
	OldStart int       `json:"old_start"`
	OldEnd   int       `json:"old_end"`
	NewStart int       `json:"new_start"`
	NewEnd   int       `json:"new_end"`
	OldLines []string  `json:"old_lines,omitempty"`
	NewLines []string  `json:"new_lines,omitempty"`
}

// Stats aggregates change counts across blocks. A modify block of k old
// lines and m new lines counts max(k, m) modifications.
type Stats struct {
	Additions     int `json:"additions"`
	Deletions     int `json:"deletions"`
	Modifications int `json:"modifications"`
	Total         int `json:"total"`
}

// SideBySideResult is the ordered block list plus aggregate statistics.
type SideBySideResult struct {
	Blocks     []Block `json:"blocks"`
	Statistics Stats   `json:"statistics"`
}

// SideBySide compares a and b and returns every region, changed or not.
func SideBySide(a, b string) SideBySideResult {
	aLines := splitLines(a)
	bLines := splitLines(b)

	var result SideBySideResult
	for _, op := range opcodes(aLines, bLines) {
		block := Block{
			OldLines: copyLines(aLines[op.I1:op.I2]),
			NewLines: copyLines(bLines[op.J1:op.J2]),
		}
		switch op.Tag {
		case tagEqual:
			block.Type = BlockEqual
		case tagReplace:
			block.Type = BlockModify
			result.Statistics.Modifications += maxInt(op.I2-op.I1, op.J2-op.J1)
		case tagDelete:
			block.Type = BlockDelete
			result.Statistics.Deletions += op.I2 - op.I1
		case tagInsert:
			block.Type = BlockInsert
			result.Statistics.Additions += op.J2 - op.J1
		}
		if op.I2 > op.I1 {
			block.OldStart, block.OldEnd = op.I1+1, op.I2
		}
		if op.J2 > op.J1 {
			block.NewStart, block.NewEnd = op.J1+1, op.J2
		}
		result.Blocks = append(result.Blocks, block)
	}
	s := &result.Statistics
	s.Total = s.Additions + s.Deletions + s.Modifications
	return result
}

// CompactBlock is a changed region prefixed with a "@ Line" marker.
type CompactBlock struct {
	Marker string `json:"marker"`
	Block
}

// CompactResult carries only the changed blocks. Message holds the
// NoChanges sentinel when nothing differs.
type CompactResult struct {
	Blocks     []CompactBlock `json:"blocks"`
	Statistics Stats          `json:"statistics"`
	Message    string         `json:"message,omitempty"`
}

// Compact is SideBySide without equal blocks, each changed block annotated
// with the line range it covers.
func Compact(a, b string) CompactResult {
	full := SideBySide(a, b)

	var result CompactResult
	result.Statistics = full.Statistics
	for _, block := range full.Blocks {
		if block.Type == BlockEqual {
			continue
		}
		result.Blocks = append(result.Blocks, CompactBlock{
			Marker: lineMarker(block),
			Block:  block,
		})
	}
	if len(result.Blocks) == 0 {
		result.Message = NoChanges
	}
	return result
}

// lineMarker renders the "@ Line <range>" prefix for a changed block, using
// the old-side range when present and the new-side range for pure inserts.
func lineMarker(block Block) string {
	start, end := block.OldStart, block.OldEnd
	if start == 0 {
		start, end = block.NewStart, block.NewEnd
	}
	if start == end {
		return fmt.Sprintf("@ Line %d", start)
	}
	return fmt.Sprintf("@ Line %d-%d", start, end)
}

func copyLines(lines []string) []string {
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
