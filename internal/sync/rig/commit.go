package rig

// CommitStatus is the outcome of a deferred gated-region commit.
type CommitStatus int

// Commit outcomes.
const (
	// CommitCommitted means the bones were written.
	CommitCommitted CommitStatus = iota

	// CommitSkipped means the owner does not reference an armature.
	CommitSkipped

	// CommitMissing means nothing was pending for the datablock.
	CommitMissing

	// CommitEmpty means an empty bone sequence was pending; nothing was
	// written.
	CommitEmpty

	// CommitFailed means the mode transition or the write failed.
	CommitFailed
)

// String returns the status name.
func (s CommitStatus) String() string {
	switch s {
	case CommitCommitted:
		return "committed"
	case CommitSkipped:
		return "skipped"
	case CommitMissing:
		return "missing"
	case CommitEmpty:
		return "empty"
	case CommitFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CommitResult reports a deferred commit.
type CommitResult struct {
	Status CommitStatus

	// UUID identifies the datablock, empty when skipped.
	UUID string

	// Owner names the owner object.
	Owner string

	// Bones is the number of bones taken from the pending store.
	Bones int

	// Err is ErrPendingCommitMissing for CommitMissing and a
	// *GatedWriteError for CommitFailed.
	Err error
}

// OK reports whether the commit left nothing to retry.
func (r CommitResult) OK() bool {
	return r.Status != CommitFailed && r.Status != CommitMissing
}
