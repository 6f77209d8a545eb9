package reconcile

import (
	"fmt"
	"time"
)

// Status summarizes the outcome of a walk.
type Status int

const (
	// StatusMatch means both replicas hold the same keys.
	StatusMatch Status = iota
	// StatusDiverged means a difference was found.
	StatusDiverged
	// StatusInconclusive means no difference was found but some branches
	// could not be compared.
	StatusInconclusive
)

func (s Status) String() string {
	switch s {
	case StatusMatch:
		return "match"
	case StatusDiverged:
		return "diverged"
	case StatusInconclusive:
		return "inconclusive"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Divergence describes the leaf reported by a walk.
type Divergence[K, V any] struct {
	// Index is the position of the leaf in the local tree.
	Index int
	Key   K
	Value V
	// RemoteValue is the value the remote holds at Index, unless RemoteMissing
	// is set or the value could not be fetched.
	RemoteValue V
	// RemoteMissing is set when the remote tree has no leaf at Index.
	RemoteMissing bool
	// Confirmed is set when the remote value was fetched and differs from the
	// local one, or is missing. An unconfirmed divergence is still backed by
	// a hash mismatch of its parent.
	Confirmed bool
}

// Failure is a fetch that could not be completed.
type Failure struct {
	Index int
	Kind  string
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %d: %v", f.Kind, f.Index, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of FindDivergence.
type Result[K, V any] struct {
	Divergence *Divergence[K, V]
	// Candidates are the local leaf positions under mismatching nodes, sorted.
	Candidates []int
	// RemoteAhead is set when the remote holds nodes beyond the local tree.
	RemoteAhead  bool
	Inconclusive bool
	Failures     []Failure
	Fetches      int
	Duration     time.Duration
}

// Status returns StatusDiverged if any difference was found, otherwise
// StatusInconclusive if some fetches failed, otherwise StatusMatch.
func (r *Result[K, V]) Status() Status {
	switch {
	case r.Divergence != nil || r.RemoteAhead:
		return StatusDiverged
	case r.Inconclusive:
		return StatusInconclusive
	default:
		return StatusMatch
	}
}

func (r *Result[K, V]) fail(index int, kind string, err error) {
	r.Inconclusive = true
	r.Failures = append(r.Failures, Failure{Index: index, Kind: kind, Err: err})
}
