package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnified_NoChanges(t *testing.T) {
	for _, text := range []string{"", "a\nb\nc\n", "single line"} {
		assert.Equal(t, NoChanges, Unified(text, text, DefaultContextLines))
	}
}

func TestUnified_SingleModification(t *testing.T) {
	got := Unified("a\nb\nc\n", "a\nx\nc\n", DefaultContextLines)
	lines := strings.Split(got, "\n")

	require.GreaterOrEqual(t, len(lines), 7)
	assert.Equal(t, "+1 -1", lines[0])
	assert.Equal(t, "--- version1", lines[1])
	assert.Equal(t, "+++ version2", lines[2])
	assert.Equal(t, "@@ -1,3 +1,3 @@", lines[3])
	assert.Equal(t, []string{" a", "-b", "+x", " c"}, lines[4:8])
}

func TestUnified_ContextLimitsHunks(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 20; i++ {
		oldLines = append(oldLines, "same")
		newLines = append(newLines, "same")
	}
	oldLines[0], newLines[0] = "first-old", "first-new"
	oldLines[19], newLines[19] = "last-old", "last-new"

	got := Unified(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"), 1)
	assert.Equal(t, 2, strings.Count(got, "@@ -"))
	assert.Contains(t, got, "-first-old")
	assert.Contains(t, got, "+first-new")
	assert.Contains(t, got, "-last-old")
	assert.Contains(t, got, "+last-new")
	// Changes sit at the file edges, so each hunk carries one context line.
	assert.Equal(t, 2, strings.Count(got, " same"))
}

func TestUnified_EmptyToContent(t *testing.T) {
	got := Unified("", "a\nb\n", DefaultContextLines)
	lines := strings.Split(got, "\n")
	assert.Equal(t, "+2 -0", lines[0])
	assert.Equal(t, "@@ -0,0 +1,2 @@", lines[3])
	assert.Equal(t, []string{"+a", "+b"}, lines[4:6])
}

func TestSideBySide_ModifyBlock(t *testing.T) {
	result := SideBySide("a\nb\nc\n", "a\nx\nc\n")

	require.Len(t, result.Blocks, 3)
	assert.Equal(t, BlockEqual, result.Blocks[0].Type)
	assert.Equal(t, BlockModify, result.Blocks[1].Type)
	assert.Equal(t, BlockEqual, result.Blocks[2].Type)

	modify := result.Blocks[1]
	assert.Equal(t, []string{"b"}, modify.OldLines)
	assert.Equal(t, []string{"x"}, modify.NewLines)
	assert.Equal(t, 2, modify.OldStart)
	assert.Equal(t, 2, modify.OldEnd)
	assert.Equal(t, 2, modify.NewStart)
	assert.Equal(t, 2, modify.NewEnd)

	assert.Equal(t, 1, result.Statistics.Modifications)
	assert.Equal(t, 0, result.Statistics.Additions)
	assert.Equal(t, 0, result.Statistics.Deletions)
	assert.Equal(t, 1, result.Statistics.Total)
}

func TestSideBySide_InsertAndDelete(t *testing.T) {
	result := SideBySide("a\nb\n", "a\nb\nc\n")
	require.Len(t, result.Blocks, 2)
	insert := result.Blocks[1]
	assert.Equal(t, BlockInsert, insert.Type)
	assert.Empty(t, insert.OldLines)
	assert.Equal(t, []string{"c"}, insert.NewLines)
	assert.Zero(t, insert.OldStart)
	assert.Equal(t, 3, insert.NewStart)
	assert.Equal(t, 1, result.Statistics.Additions)

	result = SideBySide("a\nb\nc\n", "a\nc\n")
	var deleted *Block
	for i := range result.Blocks {
		if result.Blocks[i].Type == BlockDelete {
			deleted = &result.Blocks[i]
		}
	}
	require.NotNil(t, deleted)
	assert.Equal(t, []string{"b"}, deleted.OldLines)
	assert.Equal(t, 1, result.Statistics.Deletions)
}

func TestSideBySide_ModifyCountsLongerSide(t *testing.T) {
	result := SideBySide("a\nb\nz\n", "a\nx\ny\nw\nz\n")
	assert.Equal(t, 3, result.Statistics.Modifications)
}

func TestCompact_OmitsEqualBlocks(t *testing.T) {
	result := Compact("a\nb\nc\n", "a\nx\nc\n")

	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "@ Line 2", result.Blocks[0].Marker)
	assert.Equal(t, BlockModify, result.Blocks[0].Type)
	assert.Empty(t, result.Message)
}

func TestCompact_NoChanges(t *testing.T) {
	for _, text := range []string{"", "a\nb\nc\n"} {
		result := Compact(text, text)
		assert.Empty(t, result.Blocks)
		assert.Equal(t, NoChanges, result.Message)
	}
}

func TestCompact_MultiLineMarker(t *testing.T) {
	result := Compact("a\nb\nc\nd\n", "a\nx\ny\nd\n")
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "@ Line 2-3", result.Blocks[0].Marker)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, splitLines("a\n\nb\n"))
}
