package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpdateMark identifies a persisted "last done at" timestamp.
type UpdateMark int

const (
	// UpdateMarkFullScan is written by the external update-info job.
	UpdateMarkFullScan UpdateMark = 1
	// UpdateMarkSendReport is written once a report run completes.
	UpdateMarkSendReport UpdateMark = 2
)

// ErrSendTooSoon aborts a run attempted before the minimum interval
// since the previous completed send has passed. Not a failure.
var ErrSendTooSoon = errors.New("reports were sent recently")

// SetUpdateTime stores the current time for the given mark.
func (s *Store) SetUpdateTime(mark UpdateMark) error {
	_, err := s.db.Exec(`INSERT INTO updates (marker, updated_at) VALUES (?, ?)
        ON CONFLICT(marker) DO UPDATE SET updated_at = excluded.updated_at`,
		int(mark), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store update mark %d: %w", mark, err)
	}
	return nil
}

// UpdateTime returns the stored time for the given mark, or the zero
// time when the mark was never written.
func (s *Store) UpdateTime(mark UpdateMark) (time.Time, error) {
	var ts int64
	err := s.db.Get(&ts, `SELECT updated_at FROM updates WHERE marker = ?`, int(mark))
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load update mark %d: %w", mark, err)
	}
	return time.Unix(ts, 0), nil
}

// CheckReportsSendAvailable returns ErrSendTooSoon when the previous
// report run finished less than minInterval ago.
func (s *Store) CheckReportsSendAvailable(minInterval time.Duration) error {
	last, err := s.UpdateTime(UpdateMarkSendReport)
	if err != nil {
		return err
	}
	if last.IsZero() {
		return nil
	}
	if elapsed := time.Since(last); elapsed < minInterval {
		return fmt.Errorf("%w: last send %s ago", ErrSendTooSoon, elapsed.Round(time.Second))
	}
	return nil
}
