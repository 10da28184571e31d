package diff

import (
	"fmt"
	"strings"
)

// DefaultContextLines is the number of unchanged context lines emitted
// around each hunk when the caller does not ask for a specific amount.
const DefaultContextLines = 3

// Unified renders a standard unified diff between a and b with up to
// contextLines of unchanged context around each change. The first line is a
// "+<additions> -<deletions>" summary (file headers excluded from the
// counts). Identical inputs return the NoChanges sentinel.
func Unified(a, b string, contextLines int) string {
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}
	aLines := splitLines(a)
	bLines := splitLines(b)

	ops := opcodes(aLines, bLines)
	groups := groupOpcodes(ops, contextLines)
	if len(groups) == 0 {
		return NoChanges
	}

	additions, deletions := 0, 0
	for _, op := range ops {
		switch op.Tag {
		case tagDelete:
			deletions += op.I2 - op.I1
		case tagInsert:
			additions += op.J2 - op.J1
		case tagReplace:
			deletions += op.I2 - op.I1
			additions += op.J2 - op.J1
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "+%d -%d\n", additions, deletions)
	sb.WriteString("--- version1\n")
	sb.WriteString("+++ version2\n")

	for _, group := range groups {
		first, last := group[0], group[len(group)-1]
		fmt.Fprintf(&sb, "@@ -%s +%s @@\n",
			formatRange(first.I1, last.I2),
			formatRange(first.J1, last.J2))
		for _, op := range group {
			switch op.Tag {
			case tagEqual:
				for _, line := range aLines[op.I1:op.I2] {
					sb.WriteString(" " + line + "\n")
				}
			case tagDelete, tagReplace:
				for _, line := range aLines[op.I1:op.I2] {
					sb.WriteString("-" + line + "\n")
				}
			}
			switch op.Tag {
			case tagInsert, tagReplace:
				for _, line := range bLines[op.J1:op.J2] {
					sb.WriteString("+" + line + "\n")
				}
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// formatRange renders a hunk range in unified-diff notation: "start,length",
// with the length omitted when it is exactly one line.
func formatRange(start, stop int) string {
	beginning := start + 1
	length := stop - start
	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}
	if length == 0 {
		beginning--
	}
	return fmt.Sprintf("%d,%d", beginning, length)
}

// groupOpcodes trims leading/trailing context and splits opcodes into hunk
// groups separated by more than 2*n unchanged lines. A fully-equal opcode
// list yields no groups.
func groupOpcodes(ops []opcode, n int) [][]opcode {
	changed := false
	for _, op := range ops {
		if op.Tag != tagEqual {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	codes := append([]opcode(nil), ops...)
	if codes[0].Tag == tagEqual {
		c := codes[0]
		codes[0] = opcode{tagEqual, maxInt(c.I1, c.I2-n), c.I2, maxInt(c.J1, c.J2-n), c.J2}
	}
	if last := codes[len(codes)-1]; last.Tag == tagEqual {
		codes[len(codes)-1] = opcode{tagEqual, last.I1, minInt(last.I2, last.I1+n), last.J1, minInt(last.J2, last.J1+n)}
	}

	var groups [][]opcode
	var group []opcode
	for _, c := range codes {
		if c.Tag == tagEqual && c.I2-c.I1 > 2*n {
			group = append(group, opcode{tagEqual, c.I1, minInt(c.I2, c.I1+n), c.J1, minInt(c.J2, c.J1+n)})
			groups = append(groups, group)
			group = []opcode{{tagEqual, maxInt(c.I1, c.I2-n), c.I2, maxInt(c.J1, c.J2-n), c.J2}}
			continue
		}
		group = append(group, c)
	}
	if len(group) > 0 && !(len(group) == 1 && group[0].Tag == tagEqual) {
		groups = append(groups, group)
	}
	return groups
}
