// Package storage provides SQLite-based persistence for round results.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/netpac/internal/game"
)

// Store manages the SQLite database connection for round history.
type Store struct {
	db *sql.DB
}

// RoundEntry is a stored round with its players.
type RoundEntry struct {
	ID         int64
	RoundID    string
	MapName    string
	Reason     string
	WinnerRole string // Empty if nobody won
	Ticks      uint64
	StartedAt  time.Time
	EndedAt    time.Time
	CreatedAt  time.Time
	Players    []PlayerEntry
}

// PlayerEntry is one player's line in a stored round.
type PlayerEntry struct {
	PlayerID int32
	Name     string
	Role     string
	Score    int
	Dead     bool
}

// PlayerTotal aggregates a player name across all stored rounds.
type PlayerTotal struct {
	Name   string
	Rounds int
	Total  int64
	Best   int
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	// Saves run on their own goroutines; one connection keeps writers serialized.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS rounds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			round_id TEXT NOT NULL UNIQUE,
			map TEXT NOT NULL,
			reason TEXT NOT NULL,
			winner_role TEXT,
			ticks INTEGER NOT NULL DEFAULT 0,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_rounds_ended ON rounds(ended_at DESC);

		CREATE TABLE IF NOT EXISTS round_players (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			round_id TEXT NOT NULL REFERENCES rounds(round_id),
			player_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			dead INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_round_players_round ON round_players(round_id);
		CREATE INDEX IF NOT EXISTS idx_round_players_name ON round_players(name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRound records a finished round and its players in one transaction.
// Returns the ID of the inserted round record.
func (s *Store) SaveRound(result game.RoundResult) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var winner sql.NullString
	if w := result.WinnerRole(); w != "" {
		winner = sql.NullString{String: w, Valid: true}
	}

	res, err := tx.Exec(
		`INSERT INTO rounds (round_id, map, reason, winner_role, ticks, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RoundID.String(),
		result.MapName,
		result.Reason.String(),
		winner,
		int64(result.Ticks),
		result.StartedAt.UnixMilli(),
		result.EndedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save round: %w", err)
	}

	for _, p := range result.Players {
		if _, err := tx.Exec(
			`INSERT INTO round_players (round_id, player_id, name, role, score, dead)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			result.RoundID.String(), p.ID, p.Name, p.Role.String(), p.Score, p.Dead,
		); err != nil {
			return 0, fmt.Errorf("storage: cannot save player %q: %w", p.Name, err)
		}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage: cannot commit round: %w", err)
	}
	return id, nil
}

// SaveRoundResult implements game.ResultSaver.
func (s *Store) SaveRoundResult(result game.RoundResult) error {
	_, err := s.SaveRound(result)
	return err
}

// Ensure Store implements ResultSaver
var _ game.ResultSaver = (*Store)(nil)

const roundColumns = `id, round_id, map, reason, winner_role, ticks, started_at, ended_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (RoundEntry, error) {
	var (
		e              RoundEntry
		winner         sql.NullString
		ticks          int64
		started, ended int64
		createdAt      any
	)
	if err := row.Scan(&e.ID, &e.RoundID, &e.MapName, &e.Reason, &winner, &ticks, &started, &ended, &createdAt); err != nil {
		return e, err
	}
	e.WinnerRole = winner.String
	e.Ticks = uint64(ticks)
	e.StartedAt = time.UnixMilli(started)
	e.EndedAt = time.UnixMilli(ended)
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

// parseTime handles both time.Time and string DATETIME values.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// RoundByID retrieves a round and its players. Returns nil if not found.
func (s *Store) RoundByID(roundID uuid.UUID) (*RoundEntry, error) {
	e, err := scanRound(s.db.QueryRow(
		`SELECT `+roundColumns+` FROM rounds WHERE round_id = ?`,
		roundID.String(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query round: %w", err)
	}

	players, err := s.roundPlayers(e.RoundID)
	if err != nil {
		return nil, err
	}
	e.Players = players
	return &e, nil
}

func (s *Store) roundPlayers(roundID string) ([]PlayerEntry, error) {
	rows, err := s.db.Query(
		`SELECT player_id, name, role, score, dead
		 FROM round_players
		 WHERE round_id = ?
		 ORDER BY score DESC, player_id`,
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query round players: %w", err)
	}
	defer rows.Close()

	var players []PlayerEntry
	for rows.Next() {
		var p PlayerEntry
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Role, &p.Score, &p.Dead); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return players, nil
}

// RecentRounds retrieves the most recently ended rounds, without players.
func (s *Store) RecentRounds(limit int) ([]RoundEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+roundColumns+`
		 FROM rounds
		 ORDER BY ended_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query rounds: %w", err)
	}
	defer rows.Close()

	var entries []RoundEntry
	for rows.Next() {
		e, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return entries, nil
}

// TopPlayers ranks player names by their summed score across all rounds.
func (s *Store) TopPlayers(limit int) ([]PlayerTotal, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT name, COUNT(*), SUM(score), MAX(score)
		 FROM round_players
		 GROUP BY name
		 ORDER BY SUM(score) DESC, name
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query top players: %w", err)
	}
	defer rows.Close()

	var totals []PlayerTotal
	for rows.Next() {
		var p PlayerTotal
		if err := rows.Scan(&p.Name, &p.Rounds, &p.Total, &p.Best); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		totals = append(totals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return totals, nil
}

// RoundCount returns the number of stored rounds.
func (s *Store) RoundCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM rounds`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: cannot count rounds: %w", err)
	}
	return n, nil
}
