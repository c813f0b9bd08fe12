package orchestrate

import (
	"fmt"
	"strings"

	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"

	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/object"
)

func blobTextAt(commit *object.Commit, path string) (string, error) {
	tree, err := commit.Tree()
	if err != nil {
		return "", err
	}
	f, err := tree.File(path)
	if err != nil {
		return "", err
	}
	return f.Contents()
}

// logMergeConflicts composes the two merge messages a finished MergeDriver
// run needs: one for the terminal/caller ("Auto-merging ...", "CONFLICT
// (...): ..." per path) and one written to MERGE_MSG for the eventual
// commit. Adapted from logMergeConflicts's mergeDiffType switch, collapsed
// to the categories the synchronised resolver's UnmergedPaths/MergeResults
// actually distinguish: a path with a recorded content MergeResult is a
// content conflict, everything else unmerged is a mode/add-add conflict
// (DESIGN.md notes this as a simplification of the teacher's finer-grained
// mergeDiffBothAdded/mergeDiffModifiedDeleted/mergeDiffDeletedModified
// split, which needs diff-type information the new data model doesn't
// carry per path).
func (s *Session) logMergeConflicts(theirsBranch plumbing.ReferenceName) (hasConflicts bool, mergeMsg string, err error) {
	theirs := theirsBranch.Short()

	var b strings.Builder
	var fb strings.Builder
	fb.WriteString(fmt.Sprintf("Merge branch '%s'\n\n", theirs))
	fb.WriteString("# Conflicts:\n")

	results := s.driver.MergeResults()
	unmerged := s.driver.UnmergedPaths()

	for _, path := range unmerged {
		hasConflicts = true
		if r, ok := results[path]; ok && r.ContainsConflicts {
			fmt.Fprintf(&b, "Auto-merging %s\n", path)
			fmt.Fprintf(&b, "CONFLICT (content): Merge conflict in %s\n", path)
			if stat := s.conflictDiffStat(path); stat != "" {
				fmt.Fprintf(&b, "%s\n", stat)
			}
		} else {
			fmt.Fprintf(&b, "CONFLICT: Merge conflict in %s\n", path)
		}
		fmt.Fprintf(&fb, "#\t%s\n", path)
	}

	if err := s.writeMergeMsg(hasConflicts, fb.String(), theirs); err != nil {
		return false, "", err
	}

	if hasConflicts {
		b.WriteString("Automatic merge failed; fix conflicts and then commit the result.\n")
		return true, b.String(), nil
	}

	return false, "Create merge commit to continue merge process", nil
}

// conflictDiffStat renders a short "N insertions, N deletions" summary for
// path's OURS-vs-THEIRS content, using the diffmatchpatch kernel alongside
// (not in place of) the diff3 kernel that actually produced the conflict
// markers in path's working-tree/blob content.
func (s *Session) conflictDiffStat(path string) string {
	if s.oursC == nil || s.theirsC == nil {
		return ""
	}
	oursText, err := blobTextAt(s.oursC, path)
	if err != nil {
		return ""
	}
	theirsText, err := blobTextAt(s.theirsC, path)
	if err != nil {
		return ""
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oursText, theirsText, false)

	var ins, del int
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			ins += len(d.Text)
		case diffmatchpatch.DiffDelete:
			del += len(d.Text)
		}
	}
	if ins == 0 && del == 0 {
		return ""
	}
	return fmt.Sprintf(" %d insertion(s), %d deletion(s) between HEAD and theirs", ins, del)
}

func (s *Session) writeMergeMsg(hasConflicts bool, conflictBody, theirs string) error {
	var msg string
	if hasConflicts {
		msg = conflictBody
	} else {
		msg = fmt.Sprintf("Merge branch '%s'\n\n", theirs) + `# Please enter a commit message to explain why this merge is necessary,
# especially if it merges an updated upstream into a topic branch.
#
# Lines starting with '#' will be ignored, and an empty message aborts
# the commit.`
	}

	if s.workFS == nil {
		return nil
	}
	f, err := s.workFS.Create(mergeMsgPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(msg))
	return err
}
