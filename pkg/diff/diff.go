// Package diff compares two text blobs line by line and renders the result
// as a unified diff, a side-by-side change list, or a compact change list.
// Comparison is a longest-common-subsequence alignment over lines; callers
// are expected to pass text content only (binary checks happen upstream).
package diff

import "strings"

// NoChanges is the sentinel returned when the two inputs are identical.
const NoChanges = "No changes"

type opTag int

const (
	tagEqual opTag = iota
	tagReplace
	tagDelete
	tagInsert
)

// opcode describes one aligned region: a[I1:I2] vs b[J1:J2].
type opcode struct {
	Tag            opTag
	I1, I2, J1, J2 int
}

// splitLines splits text into lines without terminators. A trailing newline
// does not produce a final empty line, and empty input yields no lines.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// opcodes computes the aligned edit regions between a and b.
func opcodes(a, b []string) []opcode {
	n, m := len(a), len(b)

	// dp[i][j] holds the LCS length of a[i:] and b[j:].
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var ops []opcode
	i, j := 0, 0
	for i < n || j < m {
		// Consume a matching run.
		i0, j0 := i, j
		for i < n && j < m && a[i] == b[j] {
			i++
			j++
		}
		if i > i0 {
			ops = append(ops, opcode{tagEqual, i0, i, j0, j})
		}
		if i >= n && j >= m {
			break
		}

		// Consume a non-matching run, following the LCS path.
		i0, j0 = i, j
		for i < n || j < m {
			if i < n && j < m && a[i] == b[j] {
				break
			}
			if i < n && (j >= m || dp[i+1][j] >= dp[i][j+1]) {
				i++
			} else {
				j++
			}
		}
		tag := tagReplace
		switch {
		case i > i0 && j == j0:
			tag = tagDelete
		case i == i0 && j > j0:
			tag = tagInsert
		}
		ops = append(ops, opcode{tag, i0, i, j0, j})
	}
	return ops
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
