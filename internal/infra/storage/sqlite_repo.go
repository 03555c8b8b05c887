package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event Event) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, session_id, timestamp, event_type, actor_id, target_id, payload, game_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.SessionID, event.Timestamp.UTC(), event.EventType, event.ActorID,
		event.TargetID, string(payloadBytes), event.GameDay,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const eventColumns = `id, session_id, timestamp, event_type, actor_id, target_id, payload, game_day`

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payloadStr string
		err := rows.Scan(
			&e.ID, &e.SessionID, &e.Timestamp, &e.EventType, &e.ActorID,
			&e.TargetID, &payloadStr, &e.GameDay,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := decodePayload([]byte(payloadStr), &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload of %s: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetBySessionID(ctx context.Context, sessionID string) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session_id = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID)
}

func (r *SQLiteEventRepository) GetByGameDay(ctx context.Context, sessionID string, day int) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session_id = ? AND game_day = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID, day)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, sessionID string, eventType string) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session_id = ? AND event_type = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID, eventType)
}

func (r *SQLiteEventRepository) CountByType(ctx context.Context, sessionID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_type, COUNT(*) FROM events WHERE session_id = ? GROUP BY event_type`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// ---------------------------------------------------------
// SQLiteSessionRepository
// ---------------------------------------------------------

type SQLiteSessionRepository struct {
	db *sql.DB
}

func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

func (r *SQLiteSessionRepository) Upsert(ctx context.Context, rec SessionRecord) error {
	favorites := rec.Favorites
	if favorites == nil {
		favorites = map[string]int{}
	}
	favBytes, err := json.Marshal(favorites)
	if err != nil {
		return fmt.Errorf("failed to marshal favorites: %w", err)
	}

	var endedAt interface{}
	if !rec.EndedAt.IsZero() {
		endedAt = rec.EndedAt.UTC()
	}

	query := `
		INSERT INTO sessions (session_id, seed, started_at, ended_at, final_state, final_stress, days_survived,
			total_consumed, books, comics, movies, games, favorites_json, elapsed_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			ended_at=excluded.ended_at,
			final_state=excluded.final_state,
			final_stress=excluded.final_stress,
			days_survived=excluded.days_survived,
			total_consumed=excluded.total_consumed,
			books=excluded.books,
			comics=excluded.comics,
			movies=excluded.movies,
			games=excluded.games,
			favorites_json=excluded.favorites_json,
			elapsed_seconds=excluded.elapsed_seconds
	`
	// SQLite integers are signed; the seed round-trips through int64
	_, err = r.db.ExecContext(ctx, query,
		rec.SessionID, int64(rec.Seed), rec.StartedAt.UTC(), endedAt, rec.FinalState, rec.FinalStress,
		rec.DaysSurvived, rec.TotalConsumed, rec.Books, rec.Comics, rec.Movies, rec.Games,
		string(favBytes), rec.ElapsedSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", rec.SessionID, err)
	}
	return nil
}

const sessionColumns = `session_id, seed, started_at, ended_at, final_state, final_stress, days_survived,
	total_consumed, books, comics, movies, games, favorites_json, elapsed_seconds`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*SessionRecord, error) {
	var rec SessionRecord
	var seed int64
	var endedAt sql.NullTime
	var favStr string
	err := row.Scan(
		&rec.SessionID, &seed, &rec.StartedAt, &endedAt, &rec.FinalState, &rec.FinalStress,
		&rec.DaysSurvived, &rec.TotalConsumed, &rec.Books, &rec.Comics, &rec.Movies, &rec.Games,
		&favStr, &rec.ElapsedSeconds,
	)
	if err != nil {
		return nil, err
	}
	rec.Seed = uint64(seed)
	if endedAt.Valid {
		rec.EndedAt = endedAt.Time
	}
	if err := json.Unmarshal([]byte(favStr), &rec.Favorites); err != nil {
		return nil, fmt.Errorf("failed to unmarshal favorites: %w", err)
	}
	return &rec, nil
}

func (r *SQLiteSessionRepository) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, sessionID)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return rec, nil
}

func (r *SQLiteSessionRepository) Best(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE final_state = 'FAILED'
		ORDER BY total_consumed DESC, days_survived DESC, started_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query best sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
