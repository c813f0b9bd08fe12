package merge

import "testing"

func TestMergeModesAgree(t *testing.T) {
	if got := MergeModes(ModeRegular, ModeExecutable, ModeExecutable); got != ModeExecutable {
		t.Errorf("got %v, want %v", got, ModeExecutable)
	}
}

func TestMergeModesOursChanged(t *testing.T) {
	got := MergeModes(ModeRegular, ModeExecutable, ModeRegular)
	if got != ModeExecutable {
		t.Errorf("got %v, want %v", got, ModeExecutable)
	}
}

func TestMergeModesTheirsChanged(t *testing.T) {
	got := MergeModes(ModeRegular, ModeRegular, ModeExecutable)
	if got != ModeExecutable {
		t.Errorf("got %v, want %v", got, ModeExecutable)
	}
}

func TestMergeModesConflict(t *testing.T) {
	got := MergeModes(ModeRegular, ModeExecutable, ModeSymlink)
	if got != ModeMissing {
		t.Errorf("got %v, want ModeMissing", got)
	}
}

func TestMergeModesCommutative(t *testing.T) {
	base := ModeRegular
	for _, ours := range []FileMode{ModeRegular, ModeExecutable, ModeSymlink, ModeMissing} {
		for _, theirs := range []FileMode{ModeRegular, ModeExecutable, ModeSymlink, ModeMissing} {
			a := MergeModes(base, ours, theirs)
			b := MergeModes(base, theirs, ours)
			if a != b {
				t.Errorf("MergeModes(%v,%v,%v)=%v != MergeModes(%v,%v,%v)=%v", base, ours, theirs, a, base, theirs, ours, b)
			}
		}
	}
}
