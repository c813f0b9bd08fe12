package merge

import "testing"

func newResolver(tw TreeWalk, store ObjectStore, fs Filesystem, filter MergeFilter, inCore bool) (*EntryResolver, *fakeBuilder) {
	b := &fakeBuilder{}
	res := NewEntryResolver(
		tw, NewContentMerger(fakeAlgorithm{}, store), NewWorkTreeOps(fs, store), NewIndexOps(b),
		store, filter, inCore,
		newEntryMap(), newPathSet(), newMergeResultMap(), newFailMap(), newPathSet(), newPathSet(),
	)
	return res, b
}

// Scenario 1: same content, mode bump -- OURS and THEIRS agree on OID,
// disagree on mode, and the new mode reconciles to THEIRS.
func TestResolveModeBump(t *testing.T) {
	store := newFakeStore()
	blob := store.put([]byte("X"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase:  {mode: ModeRegular, oid: blob},
			SlotOurs:  {mode: ModeRegular, oid: blob},
			SlotTheirs: {mode: ModeExecutable, oid: blob},
		},
	})
	tw.Next()
	res, _ := newResolver(tw, store, nil, nil, false)

	cont, _, err := res.Resolve(tw.Path())
	if err != nil || !cont {
		t.Fatalf("Resolve() = %v, %v", cont, err)
	}
	if !res.unmergedPaths.Empty() {
		t.Errorf("expected no unmerged paths, got %v", res.unmergedPaths.Values())
	}
	entry, ok := res.toBeCheckedOut.Get("a")
	if !ok {
		t.Fatalf("expected \"a\" scheduled for checkout")
	}
	if entry.Mode != ModeExecutable {
		t.Errorf("got mode %v, want %v", entry.Mode, ModeExecutable)
	}
}

// Scenario 2: mode conflict, identical content, no filter -- stays
// unmerged with an empty MergeResult and stages 1/2/3 populated.
func TestResolveModeConflictNoFilter(t *testing.T) {
	store := newFakeStore()
	blob := store.put([]byte("X"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase:   {mode: ModeRegular, oid: blob},
			SlotOurs:   {mode: ModeExecutable, oid: blob},
			SlotTheirs: {mode: ModeSymlink, oid: blob},
		},
	})
	tw.Next()
	res, b := newResolver(tw, store, nil, nil, false)

	cont, _, err := res.Resolve(tw.Path())
	if err != nil || !cont {
		t.Fatalf("Resolve() = %v, %v", cont, err)
	}
	if res.unmergedPaths.Empty() {
		t.Fatalf("expected \"a\" unmerged")
	}
	result, ok := res.mergeResults.Get("a")
	if !ok || result == nil {
		t.Fatalf("expected an empty MergeResult to be recorded, got %v, %v", result, ok)
	}
	if len(b.entries) != 3 {
		t.Errorf("expected 3 staged conflict entries, got %d", len(b.entries))
	}
}

// Scenario 3: modify/delete -- OURS changed, THEIRS deleted. Stage 3
// (theirs) must be absent.
func TestResolveModifyDelete(t *testing.T) {
	store := newFakeStore()
	x := store.put([]byte("X"))
	y := store.put([]byte("Y"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase:   {mode: ModeRegular, oid: x},
			SlotOurs:   {mode: ModeRegular, oid: y},
			SlotTheirs: {mode: ModeMissing},
		},
	})
	tw.Next()
	res, b := newResolver(tw, store, nil, nil, false)

	cont, _, err := res.Resolve(tw.Path())
	if err != nil || !cont {
		t.Fatalf("Resolve() = %v, %v", cont, err)
	}
	if res.unmergedPaths.Empty() {
		t.Fatalf("expected \"a\" unmerged")
	}
	stages := map[Stage]bool{}
	for _, e := range b.entries {
		stages[e.Stage] = true
	}
	if !stages[StageBase] || !stages[StageOurs] {
		t.Errorf("expected base and ours stages, got %v", stages)
	}
	if stages[StageTheirs] {
		t.Errorf("theirs stage must be absent, got %v", stages)
	}
	if _, ok := res.mergeResults.Get("a"); !ok {
		t.Errorf("expected mergeResults[a] to be populated")
	}
}

// Scenario 4: delete/delete -- both sides removed the path, nothing to do.
func TestResolveDeleteDelete(t *testing.T) {
	store := newFakeStore()
	x := store.put([]byte("X"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase: {mode: ModeRegular, oid: x},
		},
	})
	tw.Next()
	res, b := newResolver(tw, store, nil, nil, false)

	cont, _, err := res.Resolve(tw.Path())
	if err != nil || !cont {
		t.Fatalf("Resolve() = %v, %v", cont, err)
	}
	if !res.unmergedPaths.Empty() {
		t.Errorf("expected no unmerged paths")
	}
	if len(b.entries) != 0 {
		t.Errorf("expected nothing staged, got %d entries", len(b.entries))
	}
}

// Scenario 5: clean content merge -- OURS and THEIRS each change a
// different line; the rendered merge must be written and staged clean.
func TestResolveCleanContentMerge(t *testing.T) {
	store := newFakeStore()
	base := store.put([]byte("A\nB\nC"))
	ours := store.put([]byte("A\nB2\nC"))
	theirs := store.put([]byte("A\nB\nC2"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase:   {mode: ModeRegular, oid: base},
			SlotOurs:   {mode: ModeRegular, oid: ours},
			SlotTheirs: {mode: ModeRegular, oid: theirs},
		},
	})
	tw.Next()
	res, b := newResolver(tw, store, nil, nil, true)

	cont, _, err := res.Resolve(tw.Path())
	if err != nil || !cont {
		t.Fatalf("Resolve() = %v, %v", cont, err)
	}
	if res.modifiedFiles.Empty() {
		t.Fatalf("expected \"a\" in modifiedFiles")
	}
	if len(b.entries) != 1 {
		t.Fatalf("expected one staged entry, got %d", len(b.entries))
	}
	content, _ := store.Open(b.entries[0].OID)
	if string(content) != "A\nB2\nC2" {
		t.Errorf("got content %q", content)
	}
	if !res.unmergedPaths.Empty() {
		t.Errorf("expected no unmerged paths")
	}
}

// Scenario 6: conflicting content merge with a filter that always picks
// THEIRS -- the staged OID must equal THEIRS's own blob, no conflict
// markers survive.
func TestResolveConflictWithFilterTheirs(t *testing.T) {
	store := newFakeStore()
	base := store.put([]byte("A"))
	ours := store.put([]byte("O"))
	theirs := store.put([]byte("T"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase:   {mode: ModeRegular, oid: base},
			SlotOurs:   {mode: ModeRegular, oid: ours},
			SlotTheirs: {mode: ModeRegular, oid: theirs},
		},
	})
	tw.Next()
	filter := func(path string) Side { return SideTheirs }
	res, _ := newResolver(tw, store, nil, filter, true)

	cont, _, err := res.Resolve(tw.Path())
	if err != nil || !cont {
		t.Fatalf("Resolve() = %v, %v", cont, err)
	}
	entry, ok := res.toBeCheckedOut.Get("a")
	if !ok {
		t.Fatalf("expected \"a\" scheduled for checkout")
	}
	if entry.OID != theirs {
		t.Errorf("got oid %v, want theirs oid %v", entry.OID, theirs)
	}
	if !res.unmergedPaths.Empty() {
		t.Errorf("expected no unmerged paths")
	}
}

// Scenario 7: dirty working tree in case C4, no filter -- fails closed.
func TestResolveDirtyWorktreeNoFilter(t *testing.T) {
	store := newFakeStore()
	x := store.put([]byte("X"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase:   {mode: ModeRegular, oid: x},
			SlotOurs:   {mode: ModeRegular, oid: x},
			SlotTheirs: {mode: ModeRegular, oid: store.put([]byte("T"))},
			SlotIndex:  {mode: ModeRegular, oid: x},
			SlotFile:   {mode: ModeRegular, oid: store.put([]byte("dirty"))},
		},
		hasWorkingTree: true,
	})
	tw.Next()
	res, _ := newResolver(tw, store, newFakeFS(), nil, false)

	cont, _, err := res.Resolve(tw.Path())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cont {
		t.Fatalf("expected Resolve to signal abort")
	}
	reason, ok := res.failingPaths.Get("a")
	if !ok || reason != DirtyWorktree {
		t.Errorf("got %v, %v, want DirtyWorktree", reason, ok)
	}
}

func TestResolveSubtreeFileVsDir(t *testing.T) {
	store := newFakeStore()
	x := store.put([]byte("X"))
	tw := newFakeTreeWalk(fakePosition{
		path:      "a",
		isSubtree: true,
		slots: [5]fakeSlot{
			SlotOurs:   {mode: ModeRegular, oid: x},
			SlotTheirs: {mode: ModeTree},
		},
	})
	tw.Next()
	res, b := newResolver(tw, store, nil, nil, true)

	cont, descend, err := res.Resolve(tw.Path())
	if err != nil || !cont {
		t.Fatalf("Resolve() = %v, %v", cont, err)
	}
	if res.unmergedPaths.Empty() {
		t.Fatalf("expected \"a\" unmerged")
	}
	if len(b.entries) != 1 || b.entries[0].Stage != StageOurs {
		t.Errorf("expected a single ours-stage entry, got %v", b.entries)
	}
	if descend {
		t.Errorf("must not descend when ours is a file")
	}
}
