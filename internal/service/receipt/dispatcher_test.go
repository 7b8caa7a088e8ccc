package receipt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingGenerator struct {
	mu      sync.Mutex
	calls   map[int64]int
	release chan struct{}
	err     error
}

func (g *blockingGenerator) Generate(ctx context.Context, receiptID int64) error {
	g.mu.Lock()
	g.calls[receiptID]++
	g.mu.Unlock()

	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.err
}

func (g *blockingGenerator) count(id int64) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[id]
}

func TestLocalDispatcher_DeduplicatesInflight(t *testing.T) {
	gen := &blockingGenerator{calls: map[int64]int{}, release: make(chan struct{})}
	dispatcher := NewLocalDispatcher(gen, time.Second, nil)

	require.NoError(t, dispatcher.Dispatch(context.Background(), 1))
	require.NoError(t, dispatcher.Dispatch(context.Background(), 1))
	require.NoError(t, dispatcher.Dispatch(context.Background(), 2))

	assert.Eventually(t, func() bool { return gen.count(1) == 1 && gen.count(2) == 1 }, time.Second, 5*time.Millisecond)
	close(gen.release)
	dispatcher.Wait()

	assert.Equal(t, 1, gen.count(1))

	require.NoError(t, dispatcher.Dispatch(context.Background(), 1))
	dispatcher.Wait()
	assert.Equal(t, 2, gen.count(1))
}

func TestLocalDispatcher_OutlivesRequestContext(t *testing.T) {
	gen := &blockingGenerator{calls: map[int64]int{}, release: make(chan struct{})}
	dispatcher := NewLocalDispatcher(gen, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, dispatcher.Dispatch(ctx, 5))
	cancel()
	close(gen.release)
	dispatcher.Wait()

	assert.Equal(t, 1, gen.count(5))
}

func TestLocalDispatcher_TimeoutAndErrorsAreSwallowed(t *testing.T) {
	gen := &blockingGenerator{calls: map[int64]int{}, release: make(chan struct{}), err: errors.New("boom")}
	dispatcher := NewLocalDispatcher(gen, 20*time.Millisecond, nil)

	require.NoError(t, dispatcher.Dispatch(context.Background(), 9))
	dispatcher.Wait()

	assert.Equal(t, 1, gen.count(9))
}
