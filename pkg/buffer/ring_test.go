package buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/widgetflow/errors"
)

func TestRingFIFO(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 3; i++ {
		require.NoError(t, r.Write(i))
	}
	assert.Equal(t, 3, r.Size())
	assert.Equal(t, []int{1, 2}, r.ReadBatch(2))
	require.NoError(t, r.Write(4))
	assert.Equal(t, []int{3, 4}, r.ReadBatch(10))
	assert.Nil(t, r.ReadBatch(10))
}

func TestRingOverflowPolicies(t *testing.T) {
	tests := []struct {
		policy  OverflowPolicy
		kept    []int
		dropped []int
	}{
		{DropOldest, []int{3, 4}, []int{1, 2}},
		{DropNewest, []int{1, 2}, []int{3, 4}},
	}
	for _, test := range tests {
		t.Run(test.policy.String(), func(t *testing.T) {
			var dropped []int
			r := NewRing[int](2,
				WithOverflowPolicy[int](test.policy),
				WithDropCallback(func(item int) { dropped = append(dropped, item) }))
			for i := 1; i <= 4; i++ {
				require.NoError(t, r.Write(i))
			}
			assert.Equal(t, test.kept, r.ReadBatch(10))
			assert.Equal(t, test.dropped, dropped)
			assert.Equal(t, uint64(2), r.Dropped())
		})
	}
}

func TestRingReadySignal(t *testing.T) {
	r := NewRing[string](4)
	select {
	case <-r.Ready():
		t.Fatal("ready before any write")
	default:
	}

	require.NoError(t, r.Write("a"))
	require.NoError(t, r.Write("b"))
	<-r.Ready()
	assert.Equal(t, []string{"a", "b"}, r.ReadBatch(4))
}

func TestRingClose(t *testing.T) {
	r := NewRing[int](0)
	assert.Equal(t, 1, r.Capacity())
	require.NoError(t, r.Write(1))
	r.Close()

	err := r.Write(2)
	assert.True(t, errors.Is(err, ErrClosed))
	assert.Equal(t, []int{1}, r.ReadBatch(1))
}

func TestRingConcurrentWriters(t *testing.T) {
	r := NewRing[int](16)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = r.Write(i)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, r.Size())
	assert.Equal(t, uint64(800-16), r.Dropped())
}
