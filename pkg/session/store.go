// Package session persists which skills have already been acknowledged in
// each assistant session, so a skill injected once is not re-injected on a
// later turn. Multiple process instances share the store; SQLite serializes
// writes and a short bounded busy-retry loop absorbs transient contention.
package session

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/skillgate/skillgate/pkg/db"
	"github.com/skillgate/skillgate/pkg/logger"
)

// InjectionType records how a skill entered the injection set.
type InjectionType string

const (
	InjectionDirect   InjectionType = "direct"
	InjectionAffinity InjectionType = "affinity"
	InjectionPromoted InjectionType = "promoted"
)

// DefaultRetention is how long acknowledged-skill records are kept.
const DefaultRetention = 7 * 24 * time.Hour

const (
	busyRetryAttempts = 3
	busyRetryDelay    = 25 * time.Millisecond
)

// Record is one acknowledged (session, skill) pair.
type Record struct {
	SessionID     string        `db:"session_id"`
	SkillID       string        `db:"skill_id"`
	InjectedAt    time.Time     `db:"injected_at"`
	InjectionType InjectionType `db:"injection_type"`
	Confidence    *float64      `db:"confidence"`
}

// Store is the SQLite-backed session state store.
type Store struct {
	db *sqlx.DB
}

// Open opens the store at dbPath, creating the schema if needed.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	sqlDB, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	runner := db.NewMigrationRunner(sqlDB)
	if err := runner.Run(ctx, migrations); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to run session store migrations")
	}

	return &Store{db: sqlDB}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Acknowledged returns the set of skill identifiers already recorded for
// the session.
func (s *Store) Acknowledged(ctx context.Context, sessionID string) (map[string]bool, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		"SELECT skill_id FROM acknowledged_skills WHERE session_id = ?", sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query acknowledged skills")
	}

	acked := make(map[string]bool, len(ids))
	for _, id := range ids {
		acked[id] = true
	}
	return acked, nil
}

// Record persists one acknowledged skill. Inserting a duplicate
// (session, skill) pair is a silent no-op: the uniqueness constraint
// enforces idempotence at the storage layer, avoiding a check-then-act
// race between concurrent writers. Transient busy errors are retried a
// small bounded number of times before surfacing.
func (s *Store) Record(ctx context.Context, sessionID, skillID string, injectionType InjectionType, confidence *float64) error {
	err := retry.Do(
		func() error {
			_, err := s.db.ExecContext(ctx, `
				INSERT INTO acknowledged_skills (session_id, skill_id, injected_at, injection_type, confidence)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(session_id, skill_id) DO NOTHING
			`, sessionID, skillID, time.Now(), injectionType, confidence)
			return err
		},
		retry.RetryIf(isBusy),
		retry.Attempts(busyRetryAttempts),
		retry.Delay(busyRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	return errors.Wrapf(err, "failed to record skill %s for session %s", skillID, sessionID)
}

// Cleanup removes records older than the retention window, returning the
// number removed. It runs opportunistically, never on the hot path.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM acknowledged_skills WHERE injected_at < ?", cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clean up acknowledged skills")
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count removed records")
	}

	if removed > 0 {
		logger.G(ctx).WithField("removed", removed).Debug("session store cleanup complete")
	}
	return removed, nil
}

// Records returns all acknowledged skills for a session ordered by
// injection time, for inspection tooling.
func (s *Store) Records(ctx context.Context, sessionID string) ([]Record, error) {
	var records []Record
	err := s.db.SelectContext(ctx, &records, `
		SELECT session_id, skill_id, injected_at, injection_type, confidence
		FROM acknowledged_skills
		WHERE session_id = ?
		ORDER BY injected_at, skill_id
	`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query session records")
	}
	return records, nil
}

// isBusy reports whether the error is SQLite's transient contention signal.
func isBusy(err error) bool {
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}
