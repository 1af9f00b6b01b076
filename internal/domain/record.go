package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Validate checks the invariants every store requires before writing.
// It never mutates the record.
func (r EmotionRecord) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidRecord)
	}
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: missing record id", ErrInvalidRecord)
	}
	if r.CompositeLabel == "" {
		return fmt.Errorf("%w: missing composite label", ErrInvalidRecord)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.3f outside [0,1]", ErrInvalidRecord, r.Confidence)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidRecord)
	}
	return nil
}
