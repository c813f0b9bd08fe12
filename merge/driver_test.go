package merge

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func factoryFor(tw *fakeTreeWalk) TreeWalkFactory {
	return func(base, ours, theirs OID, builder DirCacheBuilder) (TreeWalk, error) {
		return tw, nil
	}
}

// Identity merge: base = ours = theirs everywhere produces a clean result
// with nothing unmerged, nothing checked out.
func TestDriverIdentityMerge(t *testing.T) {
	store := newFakeStore()
	x := store.put([]byte("X"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase:   {mode: ModeRegular, oid: x},
			SlotOurs:   {mode: ModeRegular, oid: x},
			SlotTheirs: {mode: ModeRegular, oid: x},
		},
	})
	dc := newFakeDirCache()
	dc.tree = x
	content := NewContentMerger(fakeAlgorithm{}, store)
	wt := NewWorkTreeOps(nil, store)
	d := NewMergeDriver(store, dc, false, factoryFor(tw), content, wt, nil, true)

	ok, err := d.Merge(x, x, x)
	if err != nil || !ok {
		t.Fatalf("Merge() = %v, %v", ok, err)
	}
	tree, has := d.ResultTreeID()
	if !has || tree != x {
		t.Errorf("got resultTree %v, %v", tree, has)
	}
	if len(d.UnmergedPaths()) != 0 {
		t.Errorf("expected no unmerged paths")
	}
	if len(d.ToBeCheckedOut()) != 0 {
		t.Errorf("expected no checkouts")
	}
	if dc.lockCount != 1 || dc.unlockCount != 1 {
		t.Errorf("expected exactly one lock/unlock cycle, got %d/%d", dc.lockCount, dc.unlockCount)
	}
}

// A caller-supplied, pre-locked dircache must never be locked or unlocked
// by the driver itself.
func TestDriverCallerLockedDirCacheNotTouched(t *testing.T) {
	store := newFakeStore()
	tw := newFakeTreeWalk()
	dc := newFakeDirCache()
	content := NewContentMerger(fakeAlgorithm{}, store)
	wt := NewWorkTreeOps(nil, store)
	d := NewMergeDriver(store, dc, true, factoryFor(tw), content, wt, nil, true)

	if _, err := d.Merge(ZeroOID, ZeroOID, ZeroOID); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if dc.lockCount != 0 || dc.unlockCount != 0 {
		t.Errorf("expected no lock/unlock calls, got %d/%d", dc.lockCount, dc.unlockCount)
	}
}

// Scenario 8: reverse deletion ordering. "d" must only be removed after
// "d/f" even though both are scheduled as plain paths.
func TestDriverReverseDeletionOrder(t *testing.T) {
	store := newFakeStore()
	x := store.put([]byte("X"))
	tw := newFakeTreeWalk(fakePosition{
		path: "d",
		slots: [5]fakeSlot{
			SlotBase: {mode: ModeRegular, oid: x},
		},
		hasWorkingTree: true,
	}, fakePosition{
		path: "d/f",
		slots: [5]fakeSlot{
			SlotBase: {mode: ModeRegular, oid: x},
		},
		hasWorkingTree: true,
	})
	dc := newFakeDirCache()
	content := NewContentMerger(fakeAlgorithm{}, store)
	fs := newFakeFS()
	wt := NewWorkTreeOps(fs, store)
	d := NewMergeDriver(store, dc, false, factoryFor(tw), content, wt, nil, false)
	d.toBeDeleted.Add("d")
	d.toBeDeleted.Add("d/f")

	if err := d.checkout(); err != nil {
		t.Fatalf("checkout() error = %v", err)
	}
	if len(fs.removed) != 2 || fs.removed[0] != "d/f" || fs.removed[1] != "d" {
		t.Errorf("got removal order %v, want [d/f d]", fs.removed)
	}
}

// cleanUp must restore every modified working-tree file from its current
// stage-0 index entry and clear modifiedFiles.
func TestDriverCleanUpRestoresWorkingTree(t *testing.T) {
	store := newFakeStore()
	orig := store.put([]byte("original"))
	dirty := store.put([]byte("dirty"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase:   {mode: ModeRegular, oid: orig},
			SlotOurs:   {mode: ModeRegular, oid: orig},
			SlotTheirs: {mode: ModeRegular, oid: dirty},
			SlotIndex:  {mode: ModeRegular, oid: orig},
			SlotFile:   {mode: ModeRegular, oid: dirty},
		},
		hasWorkingTree: true,
	})
	dc := newFakeDirCache()
	dc.entries["a"] = &IndexEntry{Path: "a", Stage: StageMerged, Mode: ModeRegular, OID: orig}
	content := NewContentMerger(fakeAlgorithm{}, store)
	fs := newFakeFS()
	fs.files["a"] = []byte("dirty")
	wt := NewWorkTreeOps(fs, store)
	d := NewMergeDriver(store, dc, false, factoryFor(tw), content, wt, nil, false)
	d.modifiedFiles.Add("a")

	if err := d.cleanUp(); err != nil {
		t.Fatalf("cleanUp() error = %v", err)
	}
	if string(fs.files["a"]) != "original" {
		t.Errorf("got %q, want %q", fs.files["a"], "original")
	}
	if !d.modifiedFiles.Empty() {
		t.Errorf("expected modifiedFiles cleared")
	}
}

// Full abort path: the dirty-worktree scenario end to end through
// Merge(), confirming it returns false without error and the failing path
// is recorded.
func TestDriverMergeAbortsOnDirtyWorktree(t *testing.T) {
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
	dc := newFakeDirCache()
	content := NewContentMerger(fakeAlgorithm{}, store)
	fs := newFakeFS()
	wt := NewWorkTreeOps(fs, store)
	d := NewMergeDriver(store, dc, false, factoryFor(tw), content, wt, nil, false)

	ok, err := d.Merge(x, x, x)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if ok {
		t.Fatalf("expected Merge() to return false")
	}
	if !d.Failed() {
		t.Fatalf("expected Failed() to be true")
	}
	reason := d.FailingPaths()["a"]
	if reason != DirtyWorktree {
		t.Errorf("got %v, want DirtyWorktree", reason)
	}
}

// C4: ours never touched the path, theirs did -- theirs must be staged for
// checkout with its exact mode/oid, nothing more and nothing less.
func TestDriverCheckedOutEntryMatchesTheirs(t *testing.T) {
	store := newFakeStore()
	base := store.put([]byte("base"))
	theirs := store.put([]byte("theirs"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase:   {mode: ModeRegular, oid: base},
			SlotOurs:   {mode: ModeRegular, oid: base},
			SlotTheirs: {mode: ModeRegular, oid: theirs},
		},
	})
	dc := newFakeDirCache()
	content := NewContentMerger(fakeAlgorithm{}, store)
	wt := NewWorkTreeOps(nil, store)
	d := NewMergeDriver(store, dc, false, factoryFor(tw), content, wt, nil, true)

	ok, err := d.Merge(base, base, theirs)
	if err != nil || !ok {
		t.Fatalf("Merge() = %v, %v", ok, err)
	}

	want := map[string]*IndexEntry{
		"a": {Path: "a", Stage: StageMerged, Mode: ModeRegular, OID: theirs},
	}
	got := d.ToBeCheckedOut()
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(IndexEntry{}, "ModTime", "Size")); diff != "" {
		t.Errorf("ToBeCheckedOut() mismatch (-want +got):\n%s\ngot dump:\n%s", diff, spew.Sdump(got))
	}
}
