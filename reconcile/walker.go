package reconcile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-antientropy/hashtree"
)

const (
	hashFetch  = "hash"
	valueFetch = "value"
)

// Opt configures a Walker.
type Opt func(*Walker)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(w *Walker) {
		w.logger = logger
	}
}

// WithFetchTimeout bounds every remote fetch.
func WithFetchTimeout(d time.Duration) Opt {
	return func(w *Walker) {
		w.fetchTimeout = d
	}
}

// WithWalkTimeout bounds the whole walk.
func WithWalkTimeout(d time.Duration) Opt {
	return func(w *Walker) {
		w.walkTimeout = d
	}
}

// WithCompareOptions sets the options used to compare local and remote values.
func WithCompareOptions(opts ...gocmp.Option) Opt {
	return func(w *Walker) {
		w.compare = opts
	}
}

// WithTailProbe makes the walker check whether the remote tree extends past
// the local one when the walk ends without candidates. Without it such a
// remote is reported as a match: a local tree with a power of two leaves has
// the same root hash as the left subtree of the remote, and otherwise a node
// can mismatch only in how it combines children that all match.
//
// The probe costs one extra fetch. Identical trees with other leaf counts
// still cost a single fetch.
func WithTailProbe() Opt {
	return func(w *Walker) {
		w.tailProbe = true
	}
}

// WithClock sets the clock used to measure walks.
func WithClock(clock clockwork.Clock) Opt {
	return func(w *Walker) {
		w.clock = clock
	}
}

// Walker finds the leaves on which a local tree and a remote replica differ,
// fetching as few remote hashes as possible.
type Walker struct {
	logger       *zap.Logger
	clock        clockwork.Clock
	fetchTimeout time.Duration
	walkTimeout  time.Duration
	compare      []gocmp.Option
	tailProbe    bool
}

// New creates a Walker.
func New(opts ...Opt) *Walker {
	w := &Walker{
		logger:       zap.NewNop(),
		clock:        clockwork.NewRealClock(),
		fetchTimeout: 5 * time.Second,
		walkTimeout:  time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// FindDivergence compares local with remote, starting at the root and
// descending only into nodes whose hashes differ.
//
// Leaves under mismatching nodes become candidates. Candidates are resolved
// in ascending order by fetching remote values, and the first one whose value
// differs or is missing on the remote is reported. If none of them differ by
// value (as happens with key only hashing), the lowest candidate is reported.
//
// A remote that doesn't have a node at a position counts as a mismatch.
// Any other fetch failure abandons the branch and marks the result as
// inconclusive. The returned error is non nil only if the walk can't be
// completed: the context is done, the walk timed out, or the local tree is
// inconsistent.
func FindDivergence[K cmp.Ordered, V any](
	ctx context.Context,
	w *Walker,
	local *hashtree.Tree[K, V],
	remote Accessor[V],
) (*Result[K, V], error) {
	ctx, cancel := context.WithTimeout(ctx, w.walkTimeout)
	defer cancel()
	start := w.clock.Now()
	res := &Result[K, V]{}
	err := walk(ctx, w, local, remote, res)
	res.Duration = w.clock.Since(start)
	if err != nil {
		walks.WithLabelValues("failed").Inc()
		return nil, err
	}
	status := res.Status()
	walks.WithLabelValues(status.String()).Inc()
	walkDuration.WithLabelValues(status.String()).Observe(res.Duration.Seconds())
	w.logger.Debug("walk completed",
		zap.Stringer("status", status),
		zap.Int("fetches", res.Fetches),
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("failures", len(res.Failures)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func walk[K cmp.Ordered, V any](
	ctx context.Context,
	w *Walker,
	local *hashtree.Tree[K, V],
	remote Accessor[V],
	res *Result[K, V],
) error {
	if local.NodeCount() == 0 {
		return probe(ctx, w, remote, 0, res)
	}
	stack := []int{local.Root()}
	mismatched := false
	for len(stack) > 0 {
		pos := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node, err := local.Node(pos)
		if err != nil {
			return fmt.Errorf("%w: local node %d: %w", hashtree.ErrInvariantViolation, pos, err)
		}
		remoteHash, err := fetchHash(ctx, w, remote, pos, res)
		switch {
		case err == nil && remoteHash == node.Hash:
			continue
		case err == nil:
			w.logger.Debug("hash mismatch",
				zap.Int("index", pos),
				zap.Uint64("local", node.Hash),
				zap.Uint64("remote", remoteHash),
			)
			mismatched = true
		case errors.Is(err, hashtree.ErrOutOfRange):
			w.logger.Debug("node missing on remote", zap.Int("index", pos))
			mismatched = true
		case ctx.Err() != nil:
			return interrupted(ctx, res)
		default:
			w.logger.Debug("branch abandoned", zap.Int("index", pos), zap.Error(err))
			res.fail(pos, hashFetch, err)
			continue
		}
		for _, ref := range []hashtree.ChildRef{node.Right, node.Left} {
			switch {
			case ref.IsNode():
				stack = append(stack, ref.Index)
			case ref.IsLeaf():
				res.Candidates = append(res.Candidates, ref.Index)
			}
		}
	}
	slices.Sort(res.Candidates)
	if len(res.Candidates) == 0 {
		if w.tailProbe && (mismatched || perfect(local.Len())) {
			return probe(ctx, w, remote, local.NodeCount(), res)
		}
		return nil
	}
	return resolve(ctx, w, local, remote, res)
}

// perfect reports whether n leaves fill a complete tree of at least two leaves.
func perfect(n int) bool {
	return n > 1 && n&(n-1) == 0
}

// probe checks whether the remote has a node at index, where the local tree
// has none.
func probe[K, V any](ctx context.Context, w *Walker, remote Accessor[V], index int, res *Result[K, V]) error {
	_, err := fetchHash(ctx, w, remote, index, res)
	switch {
	case err == nil:
		w.logger.Debug("remote extends past local tree", zap.Int("index", index))
		res.RemoteAhead = true
	case errors.Is(err, hashtree.ErrOutOfRange):
	case ctx.Err() != nil:
		return interrupted(ctx, res)
	default:
		res.fail(index, hashFetch, err)
	}
	return nil
}

func resolve[K cmp.Ordered, V any](
	ctx context.Context,
	w *Walker,
	local *hashtree.Tree[K, V],
	remote Accessor[V],
	res *Result[K, V],
) error {
	var lowest *Divergence[K, V]
	for _, idx := range res.Candidates {
		leaf, err := local.Leaf(idx)
		if err != nil {
			return fmt.Errorf("%w: local leaf %d: %w", hashtree.ErrInvariantViolation, idx, err)
		}
		d := &Divergence[K, V]{Index: idx, Key: leaf.Key, Value: leaf.Value}
		if lowest == nil {
			lowest = d
		}
		value, err := fetchValue(ctx, w, remote, idx, res)
		switch {
		case err == nil:
			d.RemoteValue = value
			if !gocmp.Equal(leaf.Value, value, w.compare...) {
				d.Confirmed = true
				res.Divergence = d
				return nil
			}
		case errors.Is(err, hashtree.ErrOutOfRange):
			d.RemoteMissing = true
			d.Confirmed = true
			res.Divergence = d
			return nil
		case ctx.Err() != nil:
			return interrupted(ctx, res)
		default:
			w.logger.Debug("value fetch failed", zap.Int("index", idx), zap.Error(err))
			res.fail(idx, valueFetch, err)
		}
	}
	w.logger.Debug("no candidate differs by value", zap.Int("index", lowest.Index))
	res.Divergence = lowest
	return nil
}

func fetchHash[K, V any](ctx context.Context, w *Walker, remote Accessor[V], index int, res *Result[K, V]) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()
	res.Fetches++
	h, err := remote.HashAt(ctx, index)
	fetches.WithLabelValues(hashFetch, fetchResult(err)).Inc()
	return h, err
}

func fetchValue[K, V any](ctx context.Context, w *Walker, remote Accessor[V], index int, res *Result[K, V]) (V, error) {
	ctx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()
	res.Fetches++
	v, err := remote.ValueAt(ctx, index)
	fetches.WithLabelValues(valueFetch, fetchResult(err)).Inc()
	return v, err
}

func interrupted[K, V any](ctx context.Context, res *Result[K, V]) error {
	return fmt.Errorf("walk interrupted after %d fetches: %w", res.Fetches, context.Cause(ctx))
}
