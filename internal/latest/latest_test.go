package latest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quote struct {
	Bid, Ask string
	Seq      int
}

func TestCell_EmptyUntilFirstStore(t *testing.T) {
	c := New[quote]()

	_, ok := c.Load()
	assert.False(t, ok)
	assert.Zero(t, c.Version())
	assert.True(t, c.UpdatedAt().IsZero())

	_, ok = c.Age()
	assert.False(t, ok)
}

func TestCell_StoreReplacesWholesale(t *testing.T) {
	c := New[quote]()
	c.Store(quote{Bid: "1", Ask: "2", Seq: 1})
	c.Store(quote{Bid: "3", Ask: "4", Seq: 2})

	got, ok := c.Load()
	require.True(t, ok)
	assert.Equal(t, quote{Bid: "3", Ask: "4", Seq: 2}, got)
	assert.Equal(t, uint64(2), c.Version())
}

func TestCell_LoadReturnsCopy(t *testing.T) {
	c := New[quote]()
	c.Store(quote{Bid: "1"})

	got, _ := c.Load()
	got.Bid = "mutated"

	again, _ := c.Load()
	assert.Equal(t, "1", again.Bid)
}

func TestCell_Age(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	c := &Cell[quote]{now: func() time.Time { return now }}

	c.Store(quote{Seq: 1})
	now = base.Add(3 * time.Second)

	age, ok := c.Age()
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, age)
	assert.Equal(t, base, c.UpdatedAt())
}

func TestCell_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	c := New[quote]()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 5000; i++ {
			// Bid and Ask always carry the same sequence so a torn read
			// would show up as a mismatch.
			s := string(rune('a' + i%26))
			c.Store(quote{Bid: s, Ask: s, Seq: i})
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if q, ok := c.Load(); ok && q.Bid != q.Ask {
					t.Errorf("torn snapshot: %+v", q)
					return
				}
			}
		}()
	}

	wg.Wait()
	got, ok := c.Load()
	require.True(t, ok)
	assert.Equal(t, 5000, got.Seq)
}
