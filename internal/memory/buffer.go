package memory

import (
	"sync"
	"time"

	"github.com/emberline/empath/internal/domain"
)

// fallbackBuffer holds assessments that could not be persisted, bounded to
// capacity records per user (oldest evicted first). It is the degraded-mode
// source for reads while the backend is unreachable.
type fallbackBuffer struct {
	mu       sync.Mutex
	capacity int
	byUser   map[string][]domain.EmotionRecord
}

func newFallbackBuffer(capacity int) *fallbackBuffer {
	return &fallbackBuffer{
		capacity: capacity,
		byUser:   make(map[string][]domain.EmotionRecord),
	}
}

func (b *fallbackBuffer) Add(record domain.EmotionRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	records := append(b.byUser[record.UserID], record)
	if len(records) > b.capacity {
		records = records[len(records)-b.capacity:]
	}
	b.byUser[record.UserID] = records
}

// Recent returns up to limit buffered records, most recent first.
func (b *fallbackBuffer) Recent(userID string, limit int) []domain.EmotionRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	records := b.byUser[userID]
	var out []domain.EmotionRecord
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}
	return out
}

// InRange returns buffered records inside [from, to], oldest first.
func (b *fallbackBuffer) InRange(userID string, from, to time.Time) []domain.EmotionRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []domain.EmotionRecord
	for _, r := range b.byUser[userID] {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// TakeAll removes and returns every buffered record for userID, oldest first.
func (b *fallbackBuffer) TakeAll(userID string) []domain.EmotionRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	records := b.byUser[userID]
	delete(b.byUser, userID)
	return records
}

// Requeue puts records back at the front of the user's buffer, preserving
// order. Used when a drain attempt fails partway through.
func (b *fallbackBuffer) Requeue(records []domain.EmotionRecord) {
	if len(records) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	userID := records[0].UserID
	merged := append(append([]domain.EmotionRecord{}, records...), b.byUser[userID]...)
	if len(merged) > b.capacity {
		merged = merged[len(merged)-b.capacity:]
	}
	b.byUser[userID] = merged
}

func (b *fallbackBuffer) Len(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byUser[userID])
}
