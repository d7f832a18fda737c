// Package repository defines the durable store interface and errors.
package repository

import (
	"context"

	"github.com/okian/fanscore/internal/domain/model"
)

// Standing is one row of the current points table.
type Standing struct {
	Name        string
	Points      int64
	PointsShown int64
	Active      bool
}

// Store provides durable access to credentials, roster, cursor and the
// point ledger. CommitAward is the single write path for point state and
// doubles as the idempotency gate: an event id that was committed before
// is rejected with ErrDuplicateEvent and nothing is applied.
type Store interface {
	// Credentials returns every stored credential, active or not.
	Credentials(ctx context.Context) ([]model.Credential, error)
	// SetCredentialActive flips the active flag for one credential.
	SetCredentialActive(ctx context.Context, id int64, active bool) error
	// TouchCredential bumps quota_used and last_used for one credential.
	TouchCredential(ctx context.Context, id int64) error

	// Cursor returns the stream resumption state; a zero Cursor when none
	// has been saved yet.
	Cursor(ctx context.Context) (model.Cursor, error)
	// SaveCursor persists the stream resumption state.
	SaveCursor(ctx context.Context, cursor model.Cursor) error

	// Roster returns all participants with their keywords.
	Roster(ctx context.Context) ([]model.Participant, error)

	// CommitAward applies one event's increments in a single transaction.
	// Returns ErrDuplicateEvent when the event id was committed before.
	CommitAward(ctx context.Context, eventID string, awards []model.PointAward, pooled float64) error

	// AdmitObservation records one classification outcome for later review.
	AdmitObservation(ctx context.Context, obs model.Observation) error

	// Standings returns the points table ordered by points descending.
	Standings(ctx context.Context) ([]Standing, error)
	// PoolBalance returns the shared pool balance.
	PoolBalance(ctx context.Context) (float64, error)
}
