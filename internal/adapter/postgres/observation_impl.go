package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/slot-watcher/internal/entity"
)

const createObservationsTable = `
	CREATE TABLE IF NOT EXISTS observations (
		id               BIGSERIAL PRIMARY KEY,
		source_id        TEXT        NOT NULL,
		kind             TEXT        NOT NULL,
		fingerprint      TEXT        NOT NULL DEFAULT '',
		available_count  INTEGER     NOT NULL DEFAULT 0,
		changed          BOOLEAN     NOT NULL DEFAULT FALSE,
		transition       TEXT        NOT NULL DEFAULT '',
		failure_reason   TEXT        NOT NULL DEFAULT '',
		duration_ms      INTEGER     NOT NULL DEFAULT 0,
		observed_at      TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS observations_source_observed_idx ON observations (source_id, observed_at);
`

// ObservationRepoImpl provides a concrete implementation for the ObservationRecorder interface using PostgreSQL.
type ObservationRepoImpl struct {
	db *pgxpool.Pool
}

// NewObservationRepo creates a new instance of ObservationRepoImpl.
func NewObservationRepo(db *pgxpool.Pool) *ObservationRepoImpl {
	return &ObservationRepoImpl{db: db}
}

// EnsureSchema creates the observations table if it does not exist yet.
func (r *ObservationRepoImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, createObservationsTable)
	return err
}

// Record appends one poll attempt.
func (r *ObservationRepoImpl) Record(ctx context.Context, obs *entity.Observation) error {
	query := `
		INSERT INTO observations (source_id, kind, fingerprint, available_count, changed, transition, failure_reason, duration_ms, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id;
	`
	return r.db.QueryRow(ctx, query,
		obs.SourceID,
		obs.Kind,
		obs.Fingerprint,
		obs.AvailableCount,
		obs.Changed,
		obs.Transition,
		obs.FailureReason,
		obs.DurationMS,
		obs.ObservedAt,
	).Scan(&obs.ID)
}

// Ping checks connectivity.
func (r *ObservationRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
