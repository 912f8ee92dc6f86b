package differ

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type lineOp struct {
	kind diffmatchpatch.Operation
	text string
}

// lineOps runs a line-mode diff and flattens it into one op per line.
func (cd *ContentDiffer) lineOps(oldText, newText string) []lineOp {
	a, b, lines := cd.dmp.DiffLinesToChars(oldText, newText)
	diffs := cd.dmp.DiffCharsToLines(cd.dmp.DiffMain(a, b, false), lines)

	var ops []lineOp
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			ops = append(ops, lineOp{kind: d.Type, text: line})
		}
	}
	return ops
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.SplitAfter(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(strings.TrimSuffix(p, "\n"), "\r")
	}
	return parts
}

// unified renders ops as a unified diff with the given number of context lines.
func unified(ops []lineOp, context int) string {
	var changes []int
	for i, op := range ops {
		if op.kind != diffmatchpatch.DiffEqual {
			changes = append(changes, i)
		}
	}
	if len(changes) == 0 {
		return ""
	}

	// line numbers before each op, 0-based
	oldAt := make([]int, len(ops)+1)
	newAt := make([]int, len(ops)+1)
	for i, op := range ops {
		oldAt[i+1] = oldAt[i]
		newAt[i+1] = newAt[i]
		if op.kind != diffmatchpatch.DiffInsert {
			oldAt[i+1]++
		}
		if op.kind != diffmatchpatch.DiffDelete {
			newAt[i+1]++
		}
	}

	var b strings.Builder
	b.WriteString("--- Previous\n+++ Current\n")

	for i := 0; i < len(changes); {
		start := max(changes[i]-context, 0)
		end := changes[i] + 1
		j := i + 1
		for j < len(changes) && changes[j]-end < 2*context+1 {
			end = changes[j] + 1
			j++
		}
		end = min(end+context, len(ops))

		fmt.Fprintf(&b, "@@ -%s +%s @@\n",
			formatRange(oldAt[start], oldAt[end]),
			formatRange(newAt[start], newAt[end]))
		for _, op := range ops[start:end] {
			switch op.kind {
			case diffmatchpatch.DiffEqual:
				b.WriteByte(' ')
			case diffmatchpatch.DiffDelete:
				b.WriteByte('-')
			case diffmatchpatch.DiffInsert:
				b.WriteByte('+')
			}
			b.WriteString(op.text)
			b.WriteByte('\n')
		}
		i = j
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatRange(start, stop int) string {
	length := stop - start
	beginning := start + 1
	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}
	if length == 0 {
		beginning--
	}
	return fmt.Sprintf("%d,%d", beginning, length)
}
