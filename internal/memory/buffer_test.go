package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/emberline/empath/internal/domain"
)

func bufferedRecord(userID, label string, at time.Time) domain.EmotionRecord {
	return domain.EmotionRecord{UserID: userID, CompositeLabel: label, Timestamp: at}
}

func TestFallbackBuffer_EvictsOldestPastCapacity(t *testing.T) {
	b := newFallbackBuffer(2)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	b.Add(bufferedRecord("alice", "one", base))
	b.Add(bufferedRecord("alice", "two", base.Add(time.Second)))
	b.Add(bufferedRecord("alice", "three", base.Add(2*time.Second)))

	assert.Equal(t, 2, b.Len("alice"))

	records := b.TakeAll("alice")
	assert.Equal(t, "two", records[0].CompositeLabel)
	assert.Equal(t, "three", records[1].CompositeLabel)
	assert.Zero(t, b.Len("alice"))
}

func TestFallbackBuffer_RecentIsNewestFirst(t *testing.T) {
	b := newFallbackBuffer(10)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, label := range []string{"one", "two", "three"} {
		b.Add(bufferedRecord("alice", label, base.Add(time.Duration(i)*time.Second)))
	}

	records := b.Recent("alice", 2)
	assert.Equal(t, []string{"three", "two"}, []string{records[0].CompositeLabel, records[1].CompositeLabel})
}

func TestFallbackBuffer_UsersAreIsolated(t *testing.T) {
	b := newFallbackBuffer(10)
	now := time.Now().UTC()

	b.Add(bufferedRecord("alice", "joy", now))
	b.Add(bufferedRecord("bob", "sadness", now))

	assert.Equal(t, 1, b.Len("alice"))
	assert.Equal(t, 1, b.Len("bob"))
	assert.Empty(t, b.Recent("carol", 5))
}

func TestFallbackBuffer_RequeuePreservesOrder(t *testing.T) {
	b := newFallbackBuffer(10)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	older := []domain.EmotionRecord{
		bufferedRecord("alice", "one", base),
		bufferedRecord("alice", "two", base.Add(time.Second)),
	}
	b.Add(bufferedRecord("alice", "three", base.Add(2*time.Second)))

	b.Requeue(older)

	records := b.TakeAll("alice")
	assert.Equal(t, []string{"one", "two", "three"},
		[]string{records[0].CompositeLabel, records[1].CompositeLabel, records[2].CompositeLabel})
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("alice")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("alice")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}
