package fanout

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rapport-api/internal/fault"
)

func TestMapPreservesOrder(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	// Earlier items sleep longer so completion order inverts input order.
	results, err := Map(context.Background(), items, 3, func(_ context.Context, n int) (string, error) {
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		return fmt.Sprintf("item-%d", n), nil
	})

	require.NoError(t, err)
	require.Len(t, results, 10)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("item-%d", i), r)
	}
}

func TestMapBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 10)

	_, err := Map(context.Background(), items, 3, func(_ context.Context, _ int) (int, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(0))
}

func TestMapEmptyInput(t *testing.T) {
	results, err := Map(context.Background(), []int{}, 4, func(_ context.Context, n int) (int, error) {
		t.Fatal("mapper must not run for empty input")
		return 0, nil
	})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMapPropagatesError(t *testing.T) {
	items := []int{0, 1, 2, 3}

	_, err := Map(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, eris.New("boom")
		}
		return n, nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestMapSettledIsolatesFailures(t *testing.T) {
	items := []int{0, 1, 2}

	settled := MapSettled(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		if n == 1 {
			return 0, eris.New("one failed")
		}
		return n * 10, nil
	})

	require.Len(t, settled, 3)
	assert.NoError(t, settled[0].Err)
	assert.Equal(t, 0, settled[0].Value)
	assert.Error(t, settled[1].Err)
	assert.NoError(t, settled[2].Err)
	assert.Equal(t, 20, settled[2].Value)
}

func TestMapSettledEmptyInput(t *testing.T) {
	settled := MapSettled(context.Background(), []string{}, 3, func(_ context.Context, s string) (string, error) {
		return s, nil
	})
	assert.Empty(t, settled)
}

func TestWithTimeoutPassesThroughSuccess(t *testing.T) {
	v, err := WithTimeout(context.Background(), time.Second, "op timed out", func(_ context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestWithTimeoutFiresOnSlowOperation(t *testing.T) {
	started := time.Now()
	_, err := WithTimeout(context.Background(), 10*time.Millisecond, "slow op timed out", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	require.Error(t, err)
	assert.True(t, fault.IsTimeout(err))
	assert.Contains(t, err.Error(), "slow op timed out")
	assert.Less(t, time.Since(started), time.Second)
}

func TestWithTimeoutAbandonsBlockedOperation(t *testing.T) {
	// fn ignores its context entirely; the envelope must still settle.
	block := make(chan struct{})
	defer close(block)

	_, err := WithTimeout(context.Background(), 10*time.Millisecond, "blocked op timed out", func(_ context.Context) (int, error) {
		<-block
		return 0, nil
	})

	require.Error(t, err)
	assert.True(t, fault.IsTimeout(err))
}

func TestWithTimeoutReportsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithTimeout(ctx, time.Second, "should not be a timeout", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	require.Error(t, err)
	assert.False(t, fault.IsTimeout(err))
}

func TestWithTimeoutPassesThroughFailure(t *testing.T) {
	_, err := WithTimeout(context.Background(), time.Second, "op timed out", func(_ context.Context) (int, error) {
		return 0, eris.New("upstream exploded")
	})

	require.Error(t, err)
	assert.False(t, fault.IsTimeout(err))
	assert.Contains(t, err.Error(), "upstream exploded")
}
