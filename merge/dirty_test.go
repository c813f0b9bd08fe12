package merge

import "testing"

func TestIsIndexDirtyAbsent(t *testing.T) {
	tw := newFakeTreeWalk(fakePosition{path: "a"})
	tw.Next()
	if IsIndexDirty(tw) {
		t.Errorf("expected clean: no index entry at all")
	}
}

func TestIsIndexDirtyMatchesBase(t *testing.T) {
	store := newFakeStore()
	x := store.put([]byte("X"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase:  {mode: ModeRegular, oid: x},
			SlotIndex: {mode: ModeRegular, oid: x},
		},
	})
	tw.Next()
	if IsIndexDirty(tw) {
		t.Errorf("expected clean: index matches base")
	}
}

func TestIsIndexDirtyThirdVersion(t *testing.T) {
	store := newFakeStore()
	base := store.put([]byte("base"))
	ours := store.put([]byte("ours"))
	third := store.put([]byte("third"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotBase:  {mode: ModeRegular, oid: base},
			SlotOurs:  {mode: ModeRegular, oid: ours},
			SlotIndex: {mode: ModeRegular, oid: third},
		},
	})
	tw.Next()
	if !IsIndexDirty(tw) {
		t.Errorf("expected dirty: index holds a third version")
	}
}

func TestIsWorktreeDirtyInCoreAlwaysClean(t *testing.T) {
	tw := newFakeTreeWalk(fakePosition{path: "a", hasWorkingTree: true, workingModeDiffers: true})
	tw.Next()
	if IsWorktreeDirty(tw, true) {
		t.Errorf("in-core merges must never be worktree-dirty")
	}
}

func TestIsWorktreeDirtyNoWorkingTree(t *testing.T) {
	tw := newFakeTreeWalk(fakePosition{path: "a", hasWorkingTree: false})
	tw.Next()
	if IsWorktreeDirty(tw, false) {
		t.Errorf("absent working tree is always treated as clean")
	}
}

func TestIsWorktreeDirtyFileMatchesIndex(t *testing.T) {
	store := newFakeStore()
	x := store.put([]byte("X"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotIndex: {mode: ModeRegular, oid: x},
			SlotFile:  {mode: ModeRegular, oid: x},
		},
		hasWorkingTree: true,
	})
	tw.Next()
	if IsWorktreeDirty(tw, false) {
		t.Errorf("expected clean: file matches index")
	}
}

func TestIsWorktreeDirtyFileDiffersFromIndex(t *testing.T) {
	store := newFakeStore()
	x := store.put([]byte("X"))
	y := store.put([]byte("Y"))
	tw := newFakeTreeWalk(fakePosition{
		path: "a",
		slots: [5]fakeSlot{
			SlotIndex: {mode: ModeRegular, oid: x},
			SlotFile:  {mode: ModeRegular, oid: y},
		},
		hasWorkingTree: true,
	})
	tw.Next()
	if !IsWorktreeDirty(tw, false) {
		t.Errorf("expected dirty: file content differs from index")
	}
}
