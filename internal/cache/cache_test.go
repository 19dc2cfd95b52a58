package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

type probeRecorder struct {
	hits   int
	misses int
}

func (p *probeRecorder) ObserveQuery(string, int64, domain.ExecutionStatus) {}

func (p *probeRecorder) ObserveCache(_ string, hit bool) {
	if hit {
		p.hits++
	} else {
		p.misses++
	}
}

func TestGetOrLoad(t *testing.T) {
	c := New(time.Minute, nil)
	calls := 0
	load := func(context.Context) (any, error) {
		calls++
		return "payload", nil
	}

	v, err := c.GetOrLoad(context.Background(), "t1", "k", load)
	require.NoError(t, err)
	assert.Equal(t, "payload", v)

	v, err = c.GetOrLoad(context.Background(), "t1", "k", load)
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
	assert.Equal(t, 1, calls)
}

func TestTenantKeysAreIsolated(t *testing.T) {
	c := New(time.Minute, nil)

	_, err := c.GetOrLoad(context.Background(), "t1", "k", func(context.Context) (any, error) {
		return "one", nil
	})
	require.NoError(t, err)

	v, err := c.GetOrLoad(context.Background(), "t2", "k", func(context.Context) (any, error) {
		return "two", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestLoadErrorIsNotCached(t *testing.T) {
	c := New(time.Minute, nil)
	calls := 0

	fail := func(context.Context) (any, error) {
		calls++
		return nil, errors.New("ledger unavailable")
	}
	_, err := c.GetOrLoad(context.Background(), "t1", "k", fail)
	require.Error(t, err)

	_, err = c.GetOrLoad(context.Background(), "t1", "k", fail)
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestInvalidateForcesReload(t *testing.T) {
	c := New(time.Minute, nil)
	calls := 0
	load := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	v, _ := c.GetOrLoad(context.Background(), "t1", "k", load)
	assert.Equal(t, 1, v)

	c.Invalidate("t1", "k")

	v, _ = c.GetOrLoad(context.Background(), "t1", "k", load)
	assert.Equal(t, 2, v)
}

func TestProbesReported(t *testing.T) {
	rec := &probeRecorder{}
	c := New(time.Minute, rec)
	load := func(context.Context) (any, error) { return 1, nil }

	_, err := c.GetOrLoad(context.Background(), "t1", "k", load)
	require.NoError(t, err)
	_, err = c.GetOrLoad(context.Background(), "t1", "k", load)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, 1, rec.hits)
}
