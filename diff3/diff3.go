package diff3

import (
	"bytes"
)

// ConflictStyle controls how unresolved chunks are rendered. StyleMerge is
// git's default two-way marker set; StyleDiff3 additionally shows the base
// text, the same distinction real git exposes via merge.conflictstyle.
type ConflictStyle int

const (
	StyleMerge ConflictStyle = iota
	StyleDiff3
)

// Names are the labels written into conflict markers.
type Names struct {
	Base, Ours, Theirs string
}

// DefaultNames matches spec §6's setCommitNames default.
func DefaultNames() Names {
	return Names{Base: "BASE", Ours: "OURS", Theirs: "THEIRS"}
}

// Result is the outcome of a three-way content merge.
type Result struct {
	Content   []byte
	Conflicts int
}

// HasConflicts reports whether any chunk was left unresolved.
func (r *Result) HasConflicts() bool {
	return r != nil && r.Conflicts > 0
}

// Algorithm is the default line-level three-way merge kernel: a Myers diff
// of base-vs-ours and base-vs-theirs, stitched back together chunk by chunk.
// It is stateless; gitmodel.ContentAlgorithm holds the Comparator/Names/Style
// configuration and passes it in on every call, matching spec §9's note
// that the configured algorithm must not be mutated mid-merge.
type Algorithm struct{}

// New returns the default merge kernel.
func New() *Algorithm {
	return &Algorithm{}
}

// Merge runs a three-way content merge of base, ours and theirs, returning
// the merged bytes and the count of unresolved chunks.
func (*Algorithm) Merge(cmp Comparator, base, ours, theirs *RawText, names Names, style ConflictStyle) (*Result, error) {
	if cmp == nil {
		cmp = DefaultComparator
	}

	m := &merger{
		base:  base.Lines(),
		a:     ours.Lines(),
		b:     theirs.Lines(),
		names: names,
		style: style,
	}
	m.diffA = myers(m.base, m.a, cmp.Equal)
	m.diffB = myers(m.base, m.b, cmp.Equal)

	var buf bytes.Buffer
	conflicts, err := m.writeChunks(&buf)
	if err != nil {
		return nil, err
	}

	return &Result{Content: buf.Bytes(), Conflicts: conflicts}, nil
}

type indexes struct {
	baseIndex, aIndex, bIndex int
}

type merger struct {
	base, a, b []string
	diffA      []op
	diffB      []op
	names      Names
	style      ConflictStyle
}

func matchesOf(ops []op) map[int]int {
	matches := map[int]int{}
	for _, o := range ops {
		if o.kind == opEql {
			matches[o.aIndex] = o.bIndex
		}
	}
	return matches
}

// writeChunks drives the chunk-emission loop: find the next point where
// base/ours/theirs all agree again, emit everything before it as one chunk,
// and repeat until the end of all three texts. Adapted from diff3.writeChunks
// in worktree_merge.go's sibling diff3.go, generalized from []fileLine to
// []string plus explicit match maps.
func (m *merger) writeChunks(w *bytes.Buffer) (int, error) {
	matchesA := matchesOf(m.diffA)
	matchesB := matchesOf(m.diffB)

	lineBase, lineA, lineB := 0, 0, 0
	conflicts := 0

	for {
		mismatchLen := m.nextMismatchLen(matchesA, matchesB, lineBase, lineA, lineB)

		if mismatchLen == 0 {
			next := m.nextMatch(matchesA, matchesB, lineBase)
			if next == nil {
				c, err := m.writeChunk(indexes{lineBase, lineA, lineB}, indexes{len(m.base), len(m.a), len(m.b)}, w)
				if err != nil {
					return 0, err
				}
				return conflicts + c, nil
			}

			c, err := m.writeChunk(indexes{lineBase, lineA, lineB}, *next, w)
			if err != nil {
				return 0, err
			}
			lineBase, lineA, lineB = next.baseIndex, next.aIndex, next.bIndex
			conflicts += c
			continue
		}

		if mismatchLen == -1 {
			c, err := m.writeChunk(indexes{lineBase, lineA, lineB}, indexes{len(m.base), len(m.a), len(m.b)}, w)
			if err != nil {
				return 0, err
			}
			return conflicts + c, nil
		}

		to := indexes{lineBase + mismatchLen, lineA + mismatchLen, lineB + mismatchLen}
		c, err := m.writeChunk(indexes{lineBase, lineA, lineB}, to, w)
		if err != nil {
			return 0, err
		}
		lineBase, lineA, lineB = to.baseIndex, to.aIndex, to.bIndex
		conflicts += c
	}
}

func (m *merger) writeChunk(from, to indexes, w *bytes.Buffer) (int, error) {
	j, k := from.aIndex, from.bIndex
	var blockBase, blockA, blockB []string
	var notEqlA, notEqlB []string

	for i := from.baseIndex; i < to.baseIndex; i++ {
		baseLine := m.base[i]
		blockBase = append(blockBase, baseLine)

		if j < to.aIndex {
			aLine := m.a[j]
			if baseLine != aLine {
				notEqlA = append(notEqlA, aLine)
			}
			blockA = append(blockA, aLine)
			j++
		}

		if k < to.bIndex {
			bLine := m.b[k]
			if baseLine != bLine {
				notEqlB = append(notEqlB, bLine)
			}
			blockB = append(blockB, bLine)
			k++
		}
	}

	for j < to.aIndex {
		aLine := m.a[j]
		notEqlA = append(notEqlA, aLine)
		blockA = append(blockA, aLine)
		j++
	}

	for k < to.bIndex {
		bLine := m.b[k]
		notEqlB = append(notEqlB, bLine)
		blockB = append(blockB, bLine)
		k++
	}

	lenBase := to.baseIndex - from.baseIndex
	lenA := to.aIndex - from.aIndex
	lenB := to.bIndex - from.bIndex

	isEqlA := (lenBase < 1 && lenA < 1) || (lenBase == lenA && from.aIndex != to.aIndex && len(notEqlA) == 0)
	isEqlB := (lenBase < 1 && lenB < 1) || (lenBase == lenB && from.bIndex != to.bIndex && len(notEqlB) == 0)
	bothEmpty := from.aIndex >= to.aIndex && from.bIndex >= to.bIndex

	switch {
	case isEqlA && isEqlB:
		return 0, writeBlock(w, blockA)
	case isEqlA:
		return 0, writeBlock(w, blockB)
	case isEqlB:
		return 0, writeBlock(w, blockA)
	case bothEmpty:
		return 0, nil
	case isBlockEqual(blockA, blockB):
		return 0, writeBlock(w, blockA)
	default:
		// Blocks of equal length are reconciled line by line, so edits to
		// neighbouring lines on different sides do not conflict.
		if lenBase == lenA && lenBase == lenB {
			merged := make([]string, 0, lenBase)
			for i, baseLine := range blockBase {
				switch {
				case blockA[i] == baseLine:
					merged = append(merged, blockB[i])
				case blockB[i] == baseLine || blockA[i] == blockB[i]:
					merged = append(merged, blockA[i])
				}
			}
			if len(merged) == lenBase {
				return 0, writeBlock(w, merged)
			}
		}
		if err := m.writeConflict(w, blockBase, blockA, blockB); err != nil {
			return 0, err
		}
		return 1, nil
	}
}

func isBlockEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func writeBlock(w *bytes.Buffer, lines []string) error {
	for _, l := range lines {
		if _, err := w.WriteString(l); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

func (m *merger) writeConflict(w *bytes.Buffer, base, ours, theirs []string) error {
	if len(ours) == 0 && len(theirs) == 0 {
		return nil
	}

	if _, err := w.WriteString("<<<<<<< " + m.names.Ours + "\n"); err != nil {
		return err
	}
	if err := writeBlock(w, ours); err != nil {
		return err
	}

	if m.style == StyleDiff3 {
		if _, err := w.WriteString("||||||| " + m.names.Base + "\n"); err != nil {
			return err
		}
		if err := writeBlock(w, base); err != nil {
			return err
		}
	}

	if _, err := w.WriteString("=======\n"); err != nil {
		return err
	}
	if err := writeBlock(w, theirs); err != nil {
		return err
	}
	_, err := w.WriteString(">>>>>>> " + m.names.Theirs + "\n")
	return err
}

// nextMismatchLen returns the number of consecutive lines (starting at
// lineBase/lineA/lineB) that all three texts still agree on, or 0 if they
// already disagree at the current position. Agreement that runs to the end
// of the texts also returns that count; -1 is returned only when every
// position already lies past the end of its text.
func (m *merger) nextMismatchLen(matchesA, matchesB map[int]int, lineBase, lineA, lineB int) int {
	i := 0
	for m.inBounds(i, lineBase, lineA, lineB) && isMatch(matchesA, lineBase, lineA, i) && isMatch(matchesB, lineBase, lineB, i) {
		i++
	}

	if m.inBounds(i, lineBase, lineA, lineB) {
		return i
	}
	return -1
}

func (m *merger) inBounds(i, lineBase, lineA, lineB int) bool {
	return (lineBase+i) <= len(m.base) || (lineA+i) <= len(m.a) || (lineB+i) <= len(m.b)
}

func (m *merger) nextMatch(matchesA, matchesB map[int]int, lineBase int) *indexes {
	for base := lineBase; base < len(m.base); base++ {
		a, okA := matchesA[base]
		b, okB := matchesB[base]
		if okA && okB {
			return &indexes{baseIndex: base, aIndex: a, bIndex: b}
		}
	}
	return nil
}

func isMatch(matches map[int]int, lineBase, offset, i int) bool {
	v, ok := matches[lineBase+i]
	if !ok {
		return false
	}
	return v == offset+i
}
