package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandQueue_TakeTurn_OnePerActor(t *testing.T) {
	q := newCommandQueue()
	q.Enqueue(move("Hero", "west"))
	q.Enqueue(move("Orc", "east"))
	q.Enqueue(move("Hero", "south"))
	q.Enqueue(move("Hero", "north"))

	taken := q.TakeTurn()
	assert.Equal(t, []Command{move("Hero", "west"), move("Orc", "east")}, taken)
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, []Command{move("Hero", "south")}, q.TakeTurn())
	assert.Equal(t, []Command{move("Hero", "north")}, q.TakeTurn())
	assert.Nil(t, q.TakeTurn())
}

func TestCommandQueue_SignalsLeftovers(t *testing.T) {
	q := newCommandQueue()
	q.Enqueue(move("Hero", "west"))
	q.Enqueue(move("Hero", "west"))
	<-q.Wait()

	q.TakeTurn()
	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a signal for the remaining command")
	}
}

func TestCommandQueue_Close(t *testing.T) {
	q := newCommandQueue()
	require.True(t, q.Enqueue(move("Hero", "west")))

	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(move("Hero", "west")))
	assert.Len(t, q.TakeTurn(), 1, "queued commands survive Close")

	// The signal from the earlier Enqueue is still buffered; the close is
	// seen on the receive after it.
	_, open := <-q.Wait()
	assert.True(t, open)
	_, open = <-q.Wait()
	assert.False(t, open)
}

func TestCommandQueue_CloseWakesIdleWaiter(t *testing.T) {
	q := newCommandQueue()
	q.Close()

	_, open := <-q.Wait()
	assert.False(t, open)
}

func TestCommandQueue_ConcurrentEnqueue(t *testing.T) {
	q := newCommandQueue()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(Command{Actor: "Hero", Action: ActionWait})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, q.Len())
}
