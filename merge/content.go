package merge

// ContentMerger wraps the configured line-level three-way merge algorithm
// (spec §4.3). It is read once at construction (spec §9 design note: "the
// configured diff algorithm is read from the repository's config once at
// construction; it must not be mutated mid-merge") and never reassigned by
// the resolver or driver.
type ContentMerger struct {
	algorithm Algorithm
	store     ObjectStore
}

// NewContentMerger binds a merge algorithm to an object store.
func NewContentMerger(algorithm Algorithm, store ObjectStore) *ContentMerger {
	return &ContentMerger{algorithm: algorithm, store: store}
}

// Merge loads each side's raw text (empty if the slot is absent) and
// invokes the configured algorithm.
func (c *ContentMerger) Merge(base, ours, theirs OID) (*MergeResult, error) {
	baseText, err := GetRawText(base, c.store)
	if err != nil {
		return nil, err
	}
	oursText, err := GetRawText(ours, c.store)
	if err != nil {
		return nil, err
	}
	theirsText, err := GetRawText(theirs, c.store)
	if err != nil {
		return nil, err
	}

	return c.algorithm.Merge(baseText, oursText, theirsText)
}
