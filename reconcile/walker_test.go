package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/go-antientropy/hashtree"
)

func build(tb testing.TB, keys []int, value func(int) string, opts ...hashtree.Opt) *hashtree.Tree[int, string] {
	tb.Helper()
	tr := hashtree.New[int, string](opts...)
	for _, k := range keys {
		require.NoError(tb, tr.Insert(k, value(k)))
	}
	return tr
}

func keyRange(from, to int, skip ...int) []int {
	var keys []int
	for i := from; i < to; i++ {
		if !slices.Contains(skip, i) {
			keys = append(keys, i)
		}
	}
	return keys
}

func label(k int) string { return fmt.Sprintf("value %d", k) }

func same(int) string { return "v" }

func newWalker(tb testing.TB, opts ...Opt) *Walker {
	return New(append([]Opt{WithLogger(zaptest.NewLogger(tb))}, opts...)...)
}

func find(
	tb testing.TB,
	w *Walker,
	local *hashtree.Tree[int, string],
	remote Accessor[string],
) *Result[int, string] {
	tb.Helper()
	res, err := FindDivergence(context.Background(), w, local, remote)
	require.NoError(tb, err)
	return res
}

func TestIdenticalTreesSingleFetch(t *testing.T) {
	w := newWalker(t)
	for n := 1; n <= 40; n++ {
		local := build(t, keyRange(0, n), label)
		remote := build(t, keyRange(0, n), label)
		res := find(t, w, local, Local[int, string]{remote})
		require.Equal(t, StatusMatch, res.Status(), "n=%d", n)
		require.Equal(t, 1, res.Fetches)
		require.Nil(t, res.Divergence)
		require.Empty(t, res.Candidates)
	}
}

func TestMissingKeyReported(t *testing.T) {
	local := build(t, keyRange(0, 8), label)
	remote := build(t, keyRange(0, 8, 4), label)
	res := find(t, newWalker(t), local, Local[int, string]{remote})
	require.Equal(t, StatusDiverged, res.Status())
	require.Equal(t, []int{4, 5, 6, 7}, res.Candidates)
	require.NotNil(t, res.Divergence)
	require.Equal(t, 4, res.Divergence.Key)
	require.Equal(t, 4, res.Divergence.Index)
	require.Equal(t, "value 4", res.Divergence.Value)
	require.Equal(t, "value 5", res.Divergence.RemoteValue)
	require.True(t, res.Divergence.Confirmed)
	require.False(t, res.Divergence.RemoteMissing)
	require.Equal(t, 6, res.Fetches)
}

func TestExtraKeyReported(t *testing.T) {
	local := build(t, keyRange(0, 8, 4), label)
	remote := build(t, keyRange(0, 8), label)
	res := find(t, newWalker(t), local, Local[int, string]{remote})
	require.Equal(t, StatusDiverged, res.Status())
	require.Equal(t, 4, res.Divergence.Index)
	require.Equal(t, 5, res.Divergence.Key)
	require.Equal(t, "value 4", res.Divergence.RemoteValue)
}

func TestSingleLeafLogarithmicFetches(t *testing.T) {
	const n = 1024
	keys := make([]int, n)
	for i := range keys {
		keys[i] = 2 * i
	}
	value := func(k int) string { return fmt.Sprint(k) }
	local := build(t, keys, value)
	changed := 2*700 + 1
	keys[700] = changed
	remote := build(t, keys, value)

	res := find(t, newWalker(t), local, Local[int, string]{remote})
	require.Equal(t, StatusDiverged, res.Status())
	require.Equal(t, 1400, res.Divergence.Key)
	require.Equal(t, fmt.Sprint(changed), res.Divergence.RemoteValue)
	levels := hashtree.Level(local.Root()) + 1
	require.LessOrEqual(t, res.Fetches, 2*levels+2)
}

func TestRandomRemoval(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	w := newWalker(t)
	for range 200 {
		n := 2 + rng.IntN(300)
		removed := rng.IntN(n)
		local := build(t, keyRange(0, n), label)
		remote := build(t, keyRange(0, n, removed), label)
		res := find(t, w, local, Local[int, string]{remote})
		require.Equal(t, StatusDiverged, res.Status(), "n=%d removed=%d", n, removed)
		require.Equal(t, removed, res.Divergence.Key, "n=%d", n)
		require.True(t, res.Divergence.Confirmed)
		require.Equal(t, removed == n-1, res.Divergence.RemoteMissing)
	}
}

func TestValuesIgnoredByKeyHashing(t *testing.T) {
	local := build(t, keyRange(0, 10), label)
	remote := build(t, keyRange(0, 10), same)
	res := find(t, newWalker(t), local, Local[int, string]{remote})
	require.Equal(t, StatusMatch, res.Status())

	local = build(t, keyRange(0, 10), label, hashtree.WithValueHashing())
	remote = build(t, keyRange(0, 10, 3), label, hashtree.WithValueHashing())
	require.NoError(t, remote.Insert(3, "changed"))
	res = find(t, newWalker(t), local, Local[int, string]{remote})
	require.Equal(t, StatusDiverged, res.Status())
	require.Equal(t, 3, res.Divergence.Key)
	require.Equal(t, "changed", res.Divergence.RemoteValue)
}

func TestUnconfirmedDivergence(t *testing.T) {
	local := build(t, keyRange(0, 8), same)
	remote := build(t, keyRange(0, 9, 4), same)
	res := find(t, newWalker(t), local, Local[int, string]{remote})
	require.Equal(t, StatusDiverged, res.Status())
	require.Equal(t, 4, res.Divergence.Index)
	require.False(t, res.Divergence.Confirmed)
	require.Equal(t, "v", res.Divergence.RemoteValue)
}

func TestEmptyTrees(t *testing.T) {
	empty := hashtree.New[int, string]()
	full := build(t, keyRange(0, 5), label)
	w := newWalker(t)

	res := find(t, w, empty, Local[int, string]{empty})
	require.Equal(t, StatusMatch, res.Status())
	require.Equal(t, 1, res.Fetches)

	res = find(t, w, empty, Local[int, string]{full})
	require.Equal(t, StatusDiverged, res.Status())
	require.True(t, res.RemoteAhead)
	require.Nil(t, res.Divergence)

	res = find(t, w, full, Local[int, string]{empty})
	require.Equal(t, StatusDiverged, res.Status())
	require.Equal(t, 0, res.Divergence.Index)
	require.True(t, res.Divergence.RemoteMissing)
	require.Equal(t, []int{0, 1, 2, 3, 4}, res.Candidates)
}

func TestTailProbe(t *testing.T) {
	local := build(t, keyRange(0, 4), label)
	remote := build(t, keyRange(0, 5), label)

	res := find(t, newWalker(t), local, Local[int, string]{remote})
	require.Equal(t, StatusMatch, res.Status())

	res = find(t, newWalker(t, WithTailProbe()), local, Local[int, string]{remote})
	require.Equal(t, StatusDiverged, res.Status())
	require.True(t, res.RemoteAhead)
	require.Equal(t, 2, res.Fetches)

	res = find(t, newWalker(t, WithTailProbe()), local, Local[int, string]{local})
	require.Equal(t, StatusMatch, res.Status())
	require.Equal(t, 2, res.Fetches)

	for n := 1; n <= 40; n++ {
		if n > 1 && n&(n-1) == 0 {
			continue
		}
		tr := build(t, keyRange(0, n), label)
		res = find(t, newWalker(t, WithTailProbe()), tr, Local[int, string]{tr})
		require.Equal(t, StatusMatch, res.Status(), "n=%d", n)
		require.Equal(t, 1, res.Fetches, "n=%d", n)
	}
}

func TestTailProbeAnyAppend(t *testing.T) {
	w := newWalker(t, WithTailProbe())
	for n := 1; n <= 33; n++ {
		local := build(t, keyRange(0, n), label)
		remote := build(t, keyRange(0, n+1), label)
		res := find(t, w, local, Local[int, string]{remote})
		require.Equal(t, StatusDiverged, res.Status(), "n=%d", n)
	}
}

func TestFetchFailureInconclusive(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := NewMockAccessor[string](ctrl)
	local := build(t, keyRange(0, 8), label)
	remote.EXPECT().HashAt(gomock.Any(), local.Root()).Return(0, errors.New("stream reset"))

	res := find(t, newWalker(t), local, remote)
	require.Equal(t, StatusInconclusive, res.Status())
	require.True(t, res.Inconclusive)
	require.Len(t, res.Failures, 1)
	require.Equal(t, local.Root(), res.Failures[0].Index)
	require.ErrorContains(t, res.Failures[0], "stream reset")
}

func TestPartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	local := build(t, keyRange(0, 8), label)
	other := Local[int, string]{build(t, keyRange(0, 8, 6), label)}
	remote := NewMockAccessor[string](ctrl)
	remote.EXPECT().HashAt(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, i int) (uint64, error) {
			if i == 1 {
				return 0, errors.New("timeout")
			}
			return other.HashAt(ctx, i)
		}).AnyTimes()
	remote.EXPECT().ValueAt(gomock.Any(), gomock.Any()).DoAndReturn(other.ValueAt).AnyTimes()

	res := find(t, newWalker(t), local, remote)
	require.Equal(t, StatusDiverged, res.Status())
	require.True(t, res.Inconclusive)
	require.Equal(t, 6, res.Divergence.Key)
}

func TestValueFetchFailureSkipsCandidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	local := build(t, keyRange(0, 8), label)
	other := Local[int, string]{build(t, keyRange(0, 8, 4), label)}
	remote := NewMockAccessor[string](ctrl)
	remote.EXPECT().HashAt(gomock.Any(), gomock.Any()).DoAndReturn(other.HashAt).AnyTimes()
	remote.EXPECT().ValueAt(gomock.Any(), 4).Return("", errors.New("reset"))
	remote.EXPECT().ValueAt(gomock.Any(), 5).Return("value 6", nil)

	res := find(t, newWalker(t), local, remote)
	require.Equal(t, StatusDiverged, res.Status())
	require.Equal(t, 5, res.Divergence.Index)
	require.True(t, res.Divergence.Confirmed)
	require.Len(t, res.Failures, 1)
	require.Equal(t, valueFetch, res.Failures[0].Kind)
}

func blocking(ctx context.Context, _ int) (uint64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestFetchTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := NewMockAccessor[string](ctrl)
	remote.EXPECT().HashAt(gomock.Any(), gomock.Any()).DoAndReturn(blocking)

	local := build(t, keyRange(0, 3), label)
	res := find(t, newWalker(t, WithFetchTimeout(10*time.Millisecond)), local, remote)
	require.Equal(t, StatusInconclusive, res.Status())
	require.ErrorIs(t, res.Failures[0], context.DeadlineExceeded)
}

func TestWalkTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	remote := NewMockAccessor[string](ctrl)
	remote.EXPECT().HashAt(gomock.Any(), gomock.Any()).DoAndReturn(blocking)

	local := build(t, keyRange(0, 3), label)
	w := newWalker(t, WithFetchTimeout(time.Minute), WithWalkTimeout(10*time.Millisecond))
	_, err := FindDivergence(context.Background(), w, local, remote)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	local := build(t, keyRange(0, 3), label)
	_, err := FindDivergence(ctx, newWalker(t), local, Local[int, string]{local})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctrl := gomock.NewController(t)
	remote := NewMockAccessor[string](ctrl)
	local := build(t, keyRange(0, 3), label)
	remote.EXPECT().HashAt(gomock.Any(), local.Root()).DoAndReturn(
		func(context.Context, int) (uint64, error) {
			clock.Advance(time.Second)
			return local.RootHash(), nil
		})

	res := find(t, newWalker(t, WithClock(clock)), local, remote)
	require.Equal(t, StatusMatch, res.Status())
	require.Equal(t, time.Second, res.Duration)
}

func TestCompareOptions(t *testing.T) {
	type record struct {
		Name string
		Seen time.Time
	}
	local := hashtree.New[int, record]()
	remote := hashtree.New[int, record]()
	for _, k := range []int{0, 1, 2, 3} {
		require.NoError(t, local.Insert(k, record{Name: "a"}))
	}
	for _, k := range []int{0, 1, 3, 4} {
		require.NoError(t, remote.Insert(k, record{Name: "a", Seen: time.Unix(100, 0)}))
	}
	res, err := FindDivergence(context.Background(), newWalker(t), local, Local[int, record]{remote})
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, res.Candidates)
	require.Equal(t, 2, res.Divergence.Index)
	require.True(t, res.Divergence.Confirmed)

	w := newWalker(t, WithCompareOptions(cmpopts.IgnoreFields(record{}, "Seen")))
	res, err = FindDivergence(context.Background(), w, local, Local[int, record]{remote})
	require.NoError(t, err)
	require.Equal(t, 2, res.Divergence.Index)
	require.False(t, res.Divergence.Confirmed)
}
