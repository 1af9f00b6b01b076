package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/emberline/empath/internal/domain"
	"github.com/emberline/empath/internal/metrics"
)

// recordColumns must match the Scan order in scanRecord.
const recordColumns = `id, user_id, session_id, composite_label, confidence, source_text, recorded_at`

// HistoryStore implements domain.HistoryStore backed by the local SQLite file.
// Each append is one transaction; reads see the last committed append.
type HistoryStore struct {
	db *DB
}

var _ domain.HistoryStore = (*HistoryStore)(nil)

func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Append(ctx context.Context, record domain.EmotionRecord) (uuid.UUID, error) {
	if err := record.Validate(); err != nil {
		return uuid.Nil, err
	}

	timer := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, s.fail("append", classify(err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO emotions (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID.String(), record.UserID, record.SessionID,
		record.CompositeLabel, record.Confidence, record.SourceText,
		record.Timestamp.UnixNano(),
	)
	if err != nil {
		return uuid.Nil, s.fail("append", classify(err))
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, s.fail("append", classify(err))
	}

	metrics.StoreOpsTotal.WithLabelValues("sqlite", "append", "ok").Inc()
	metrics.StoreOpDuration.WithLabelValues("sqlite", "append").Observe(time.Since(timer).Seconds())
	return record.ID, nil
}

func (s *HistoryStore) ReadRecent(ctx context.Context, userID string, limit int) ([]domain.EmotionRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", domain.ErrInvalidRecord)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidRecord, limit)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM emotions
		 WHERE user_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, s.fail("read_recent", classify(err))
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, s.fail("read_recent", err)
	}
	metrics.StoreOpsTotal.WithLabelValues("sqlite", "read_recent", "ok").Inc()
	return records, nil
}

func (s *HistoryStore) ReadRange(ctx context.Context, userID string, from, to time.Time) ([]domain.EmotionRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", domain.ErrInvalidRecord)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM emotions
		 WHERE user_id = ? AND recorded_at >= ? AND recorded_at <= ?
		 ORDER BY recorded_at ASC, id ASC`,
		userID, from.UnixNano(), to.UnixNano(),
	)
	if err != nil {
		return nil, s.fail("read_range", classify(err))
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, s.fail("read_range", err)
	}
	metrics.StoreOpsTotal.WithLabelValues("sqlite", "read_range", "ok").Inc()
	return records, nil
}

func (s *HistoryStore) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

func (s *HistoryStore) fail(operation string, err error) error {
	metrics.StoreOpsTotal.WithLabelValues("sqlite", operation, "error").Inc()
	return err
}

func collectRecords(rows *sql.Rows) ([]domain.EmotionRecord, error) {
	var records []domain.EmotionRecord
	for rows.Next() {
		var (
			r     domain.EmotionRecord
			rawID string
			nanos int64
		)
		if err := rows.Scan(&rawID, &r.UserID, &r.SessionID, &r.CompositeLabel, &r.Confidence, &r.SourceText, &nanos); err != nil {
			return nil, classify(err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("%w: record id %q is not a uuid: %v", domain.ErrStorageCorrupt, rawID, err)
		}
		r.ID = id
		r.Timestamp = time.Unix(0, nanos).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return records, nil
}

// classify maps driver errors onto the storage taxonomy. A damaged database
// file is fatal; everything else is treated as transient.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return fmt.Errorf("%w: %v", domain.ErrStorageCorrupt, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
