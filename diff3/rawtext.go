// Package diff3 implements the pluggable line-level three-way merge
// algorithm that the merge core treats as a black box (see merge.Algorithm).
// It is a generalisation of the Myers differ and diff3 chunk writer found in
// gopkg.in/src-d/go-git.v4's worktree_merge.go and myers_differer.go: the
// same algorithm, operating on a named RawText type instead of inline
// []fileLine, so it can be reused outside of a single Worktree.Merge call.
package diff3

import (
	"bufio"
	"bytes"
)

// RawText is a line-indexed view over a blob's bytes. Lines never include
// their trailing newline.
type RawText struct {
	lines []string
}

// NewRawText splits data into lines the same way bufio.Scanner's default
// split function does: on "\n", tolerating a final line with no trailing
// newline. An empty data slice yields a zero-line RawText.
func NewRawText(data []byte) *RawText {
	if len(data) == 0 {
		return &RawText{}
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<24)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}

	return &RawText{lines: lines}
}

// Lines returns the text's lines in order.
func (t *RawText) Lines() []string {
	if t == nil {
		return nil
	}
	return t.lines
}

// Len returns the number of lines.
func (t *RawText) Len() int {
	if t == nil {
		return 0
	}
	return len(t.lines)
}

// Comparator decides whether two lines are equal for merge purposes. The
// default comparator is a byte-for-byte string comparison; spec §4.3 calls
// this "the default text comparator".
type Comparator interface {
	Equal(a, b string) bool
}

type defaultComparator struct{}

func (defaultComparator) Equal(a, b string) bool { return a == b }

// DefaultComparator is the comparator Algorithm.Merge falls back to when
// given nil, and the one gitmodel.ContentAlgorithm passes in.
var DefaultComparator Comparator = defaultComparator{}
