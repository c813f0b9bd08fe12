package gitmodel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gopkg.in/src-d/go-git.v4/storage/memory"

	"github.com/src-d/go-merge3/diff3"
	"github.com/src-d/go-merge3/merge"
)

// Round-tripping a blob through Store.Insert/Open must reproduce its exact
// content, and the zero OID must read back as nil without touching the
// storer at all.
func TestStoreInsertOpenRoundTrip(t *testing.T) {
	storer := memory.NewStorage()
	store := NewStore(storer)

	oid, err := store.Insert([]byte("hello, merge3"))
	require.NoError(t, err)
	require.False(t, oid.IsZero())

	got, err := store.Open(oid)
	require.NoError(t, err)
	require.Equal(t, "hello, merge3", string(got))

	got, err = store.Open(merge.ZeroOID)
	require.NoError(t, err)
	require.Nil(t, got)
}

// A non-conflicting three-way merge through ContentAlgorithm must take
// both sides' independent edits without emitting conflict markers.
func TestContentAlgorithmMergeClean(t *testing.T) {
	algo := NewContentAlgorithm()

	base := []byte("line1\nline2\nline3\n")
	ours := []byte("line1 changed\nline2\nline3\n")
	theirs := []byte("line1\nline2\nline3 changed\n")

	result, err := algo.Merge(base, ours, theirs)
	require.NoError(t, err)
	require.False(t, result.ContainsConflicts)
	require.Equal(t, "line1 changed\nline2\nline3 changed\n", string(result.Content))
}

// Conflicting edits to the same line must be reported, and the configured
// conflict style governs the marker text around the hunk.
func TestContentAlgorithmMergeConflictStyles(t *testing.T) {
	base := []byte("line1\n")
	ours := []byte("ours\n")
	theirs := []byte("theirs\n")

	algo := NewContentAlgorithm()
	algo.SetNames("base", "ours", "theirs")
	result, err := algo.Merge(base, ours, theirs)
	require.NoError(t, err)
	require.True(t, result.ContainsConflicts)
	require.Contains(t, string(result.Content), "<<<<<<< ours")
	require.NotContains(t, string(result.Content), "||||||| base")

	algo.SetConflictStyle(diff3.StyleDiff3)
	result, err = algo.Merge(base, ours, theirs)
	require.NoError(t, err)
	require.True(t, result.ContainsConflicts)
	require.Contains(t, string(result.Content), "||||||| base")
}
