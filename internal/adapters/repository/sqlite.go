package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/okian/fanscore/internal/domain/model"
)

const defaultEffectiveness = 0.7

const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS credentials (
	id INTEGER PRIMARY KEY,
	api_key TEXT NOT NULL UNIQUE,
	active INTEGER NOT NULL DEFAULT 1,
	quota_used INTEGER NOT NULL DEFAULT 0,
	last_used TEXT
);

CREATE TABLE IF NOT EXISTS participants (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	slug TEXT NOT NULL UNIQUE,
	points INTEGER NOT NULL DEFAULT 0,
	points_shown INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS keywords (
	participant_id INTEGER NOT NULL,
	keyword TEXT NOT NULL,
	UNIQUE (participant_id, keyword),
	FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS stream_cursor (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	page_token TEXT NOT NULL,
	last_processed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_events (
	event_id TEXT PRIMARY KEY,
	processed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS point_awards (
	id INTEGER PRIMARY KEY,
	event_id TEXT NOT NULL,
	participant TEXT NOT NULL,
	points INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (event_id, participant)
);

CREATE TABLE IF NOT EXISTS pool_balance (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	balance REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS observations (
	id INTEGER PRIMARY KEY,
	event_id TEXT NOT NULL,
	author TEXT NOT NULL,
	message TEXT NOT NULL,
	kind TEXT NOT NULL,
	usd_amount REAL NOT NULL,
	participants TEXT NOT NULL,
	method TEXT NOT NULL,
	confidence INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
`

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db            *sql.DB
	effectiveness float64
}

// Open opens (creating if needed) the store at path and ensures the schema.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// Writes from the poller, workers and the probe loop interleave on
	// one file; a single connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	s := &SQLiteStore{
		db:            db,
		effectiveness: defaultEffectiveness,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SeedCredentials inserts any keys not already stored. Existing rows keep
// their active flag and quota counters.
func (s *SQLiteStore) SeedCredentials(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO credentials (api_key) VALUES (?)", key); err != nil {
			return fmt.Errorf("seed credential: %w", err)
		}
	}
	return nil
}

// SeedRoster inserts any participants (and their keywords) not already
// stored. Existing rows keep their points and active flag.
func (s *SQLiteStore) SeedRoster(ctx context.Context, roster []model.Participant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed roster: %w", err)
	}
	defer tx.Rollback()

	for _, p := range roster {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO participants (name, slug, active) VALUES (?, ?, ?)",
			p.Name, p.Slug, boolInt(p.Active)); err != nil {
			return fmt.Errorf("seed participant %q: %w", p.Name, err)
		}
		var id int64
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM participants WHERE name = ?", p.Name).Scan(&id); err != nil {
			return fmt.Errorf("seed participant %q: %w", p.Name, err)
		}
		for _, kw := range p.Keywords {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO keywords (participant_id, keyword) VALUES (?, ?)",
				id, kw); err != nil {
				return fmt.Errorf("seed keyword %q: %w", kw, err)
			}
		}
	}
	return tx.Commit()
}

// Credentials returns every stored credential, active or not.
func (s *SQLiteStore) Credentials(ctx context.Context) ([]model.Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, api_key, active, quota_used, COALESCE(last_used, '') FROM credentials ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var out []model.Credential
	for rows.Next() {
		var (
			c        model.Credential
			active   int
			lastUsed string
		)
		if err := rows.Scan(&c.ID, &c.APIKey, &active, &c.QuotaUsed, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		c.Active = active != 0
		c.LastUsedAt = parseTime(lastUsed)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetCredentialActive flips the active flag for one credential.
func (s *SQLiteStore) SetCredentialActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET active = ? WHERE id = ?", boolInt(active), id)
	if err != nil {
		return fmt.Errorf("update credential %d: %w", id, err)
	}
	return requireRow(res)
}

// TouchCredential bumps quota_used and last_used for one credential.
func (s *SQLiteStore) TouchCredential(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET quota_used = quota_used + 1, last_used = ? WHERE id = ?",
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("touch credential %d: %w", id, err)
	}
	return requireRow(res)
}

// Cursor returns the stream resumption state.
func (s *SQLiteStore) Cursor(ctx context.Context) (model.Cursor, error) {
	var (
		token string
		at    string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT page_token, last_processed_at FROM stream_cursor WHERE id = 1").Scan(&token, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Cursor{}, nil
	}
	if err != nil {
		return model.Cursor{}, fmt.Errorf("query cursor: %w", err)
	}
	return model.Cursor{PageToken: token, LastProcessedAt: parseTime(at)}, nil
}

// SaveCursor persists the stream resumption state.
func (s *SQLiteStore) SaveCursor(ctx context.Context, cursor model.Cursor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stream_cursor (id, page_token, last_processed_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET page_token = excluded.page_token,
			last_processed_at = excluded.last_processed_at`,
		cursor.PageToken, formatTime(cursor.LastProcessedAt))
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

// Roster returns all participants with their keywords.
func (s *SQLiteStore) Roster(ctx context.Context) ([]model.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.slug, p.active, COALESCE(k.keyword, '')
		FROM participants p
		LEFT JOIN keywords k ON k.participant_id = p.id
		ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var (
		out  []model.Participant
		last *model.Participant
	)
	for rows.Next() {
		var (
			id      int64
			name    string
			slug    string
			active  int
			keyword string
		)
		if err := rows.Scan(&id, &name, &slug, &active, &keyword); err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		if last == nil || last.ID != id {
			out = append(out, model.Participant{ID: id, Name: name, Slug: slug, Active: active != 0})
			last = &out[len(out)-1]
		}
		if keyword != "" {
			last.Keywords = append(last.Keywords, keyword)
		}
	}
	return out, rows.Err()
}

// CommitAward applies one event's increments in a single transaction.
// The processed_events insert is the idempotency gate: a duplicate event
// id fails its primary key, the transaction rolls back and nothing is
// applied.
func (s *SQLiteStore) CommitAward(ctx context.Context, eventID string, awards []model.PointAward, pooled float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit award: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, processed_at) VALUES (?, ?)",
		eventID, formatTime(time.Now())); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("record event %q: %w", eventID, err)
	}

	for _, a := range awards {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO point_awards (event_id, participant, points, created_at) VALUES (?, ?, ?, ?)",
			a.EventID, a.Participant, a.Points, formatTime(a.CreatedAt)); err != nil {
			return fmt.Errorf("insert award for %q: %w", a.Participant, err)
		}
		shown := int64(math.Floor(float64(a.Points) * s.effectiveness))
		res, err := tx.ExecContext(ctx,
			"UPDATE participants SET points = points + ?, points_shown = points_shown + ? WHERE name = ?",
			a.Points, shown, a.Participant)
		if err != nil {
			return fmt.Errorf("credit %q: %w", a.Participant, err)
		}
		if err := requireRow(res); err != nil {
			return fmt.Errorf("credit %q: %w", a.Participant, err)
		}
	}

	if pooled > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pool_balance (id, balance) VALUES (1, ?)
			ON CONFLICT (id) DO UPDATE SET balance = balance + excluded.balance`,
			pooled); err != nil {
			return fmt.Errorf("credit pool: %w", err)
		}
	}

	return tx.Commit()
}

// AdmitObservation records one classification outcome.
func (s *SQLiteStore) AdmitObservation(ctx context.Context, obs model.Observation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observations
			(event_id, author, message, kind, usd_amount, participants, method, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.EventID, obs.Author, obs.RawText, string(obs.Kind), obs.USDAmount,
		strings.Join(obs.Participants, ","), obs.Method, obs.Confidence, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

// Standings returns the points table ordered by points descending.
func (s *SQLiteStore) Standings(ctx context.Context) ([]Standing, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, points, points_shown, active FROM participants ORDER BY points DESC, name")
	if err != nil {
		return nil, fmt.Errorf("query standings: %w", err)
	}
	defer rows.Close()

	var out []Standing
	for rows.Next() {
		var (
			st     Standing
			active int
		)
		if err := rows.Scan(&st.Name, &st.Points, &st.PointsShown, &active); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		st.Active = active != 0
		out = append(out, st)
	}
	return out, rows.Err()
}

// PoolBalance returns the shared pool balance.
func (s *SQLiteStore) PoolBalance(ctx context.Context) (float64, error) {
	var balance float64
	err := s.db.QueryRowContext(ctx,
		"SELECT balance FROM pool_balance WHERE id = 1").Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query pool balance: %w", err)
	}
	return balance, nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		serr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}
