package merge

// IndexOps assembles the new index during a merge via a DirCacheBuilder.
// Entries must be added in strictly increasing path order (spec §4.5); the
// TreeWalk's pre-order traversal guarantees this for every call the
// resolver makes.
type IndexOps struct {
	builder DirCacheBuilder
}

// NewIndexOps wraps a builder obtained from a locked DirCache.
func NewIndexOps(builder DirCacheBuilder) *IndexOps {
	return &IndexOps{builder: builder}
}

// Add stages mode/oid at path under stage, minting a fresh IndexEntry.
func (o *IndexOps) Add(path string, stage Stage, mode FileMode, oid OID) error {
	return o.AddEntry(&IndexEntry{
		Path:  path,
		Stage: stage,
		Mode:  mode,
		OID:   oid,
	})
}

// AddEntry appends a fully-populated entry (used by updateIndex, which
// already knows the merged mode, mtime and size from a WrittenFile).
func (o *IndexOps) AddEntry(entry *IndexEntry) error {
	return o.builder.Add(entry)
}

// Keep re-adds an existing entry unchanged. Must be identity on
// stage/mode/oid/modtime/size (spec §8 invariant 6): the resolver uses this
// when OURS's current entry carries forward unchanged (both sides agree,
// THEIRS left the path alone, or a MergeFilter picked OURS).
func (o *IndexOps) Keep(entry *IndexEntry) error {
	return o.builder.Add(entry.Clone())
}

// Finish commits the builder's entries as the repository's new index.
func (o *IndexOps) Finish() error {
	return o.builder.Commit()
}

// Abort discards the builder without touching the persisted index.
func (o *IndexOps) Abort() error {
	return o.builder.Finish()
}
