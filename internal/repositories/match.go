package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/shared"
)

const matchColumns = "id, platform, track_key, destination_id, created_at"

// MatchRepository implements models.Repository[*models.PersistedMatch] for the session match cache.
//
// Each (platform, track_key) pair is unique.
type MatchRepository struct {
	db *sql.DB
}

// NewMatchRepository creates a new MatchRepository with the given database connection
func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Create inserts a new [models.PersistedMatch] with a generated ID
func (r *MatchRepository) Create(match *models.PersistedMatch) error {
	if err := match.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	query := `INSERT INTO matches (` + matchColumns + `) VALUES (?, ?, ?, ?, ?)`

	if _, err := r.db.Exec(query, id, string(match.Platform()), match.TrackKey(), match.DestinationID(), match.CreatedAt()); err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	match.SetID(id)
	return nil
}

// Get retrieves a match by ID
func (r *MatchRepository) Get(id string) (*models.PersistedMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = ?`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByKey retrieves the match for a track key on a platform
func (r *MatchRepository) GetByKey(platform models.Platform, trackKey string) (*models.PersistedMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE platform = ? AND track_key = ?`
	return r.scan(r.db.QueryRow(query, string(platform), trackKey))
}

// Delete removes a match by ID
func (r *MatchRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: match %s", shared.ErrRecordNotFound, id)
	}

	return nil
}

// List retrieves matches filtered by "platform", oldest first
func (r *MatchRepository) List(criteria map[string]any) ([]*models.PersistedMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE 1 = 1`
	args := []any{}

	switch p := criteria["platform"].(type) {
	case models.Platform:
		query += " AND platform = ?"
		args = append(args, string(p))
	case string:
		if p != "" {
			query += " AND platform = ?"
			args = append(args, p)
		}
	}

	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.PersistedMatch
	for rows.Next() {
		m, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return matches, nil
}

// Count returns the number of cached matches.
func (r *MatchRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM matches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *MatchRepository) scan(row scanner) (*models.PersistedMatch, error) {
	var (
		id            string
		platform      string
		trackKey      string
		destinationID string
		createdAt     time.Time
	)

	err := row.Scan(&id, &platform, &trackKey, &destinationID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: match", shared.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}

	return models.RestorePersistedMatch(id, models.Platform(platform), trackKey, destinationID, createdAt), nil
}
