package merge

import "errors"

// ErrNoWorkingTree names the error for an operation that requires
// materialised working-tree content on an in-core merger. Nothing in this
// package returns it: WorkTreeOps treats such operations as no-ops.
var ErrNoWorkingTree = errors.New("merge: no working tree attached to an in-core merger")

// ErrIndexWrite wraps a failure committing the builder's entries as the new
// index (spec §4.8 step 4: "failure raises an index-write error").
var ErrIndexWrite = errors.New("merge: failed to write index")
