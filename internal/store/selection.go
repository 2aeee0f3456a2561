package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Selection sources.
const (
	SourcePrimary  = "primary"
	SourceFallback = "fallback"
	SourceManual   = "manual"
)

// Selection is a confirmed zone choice made at the kiosk.
type Selection struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	QRID      string    `json:"qr_id,omitempty"`
	Zone      string    `json:"zone"`
	Title     string    `json:"title"`
	VideoURL  string    `json:"video_url"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ZoneCount is the number of selections of one zone.
type ZoneCount struct {
	Zone  string `json:"zone"`
	Count int    `json:"count"`
}

// SelectionRepository provides access to confirmed selections.
type SelectionRepository struct {
	db *sql.DB
}

// Selections returns the selection repository for this store.
func (s *Store) Selections() *SelectionRepository {
	return &SelectionRepository{db: s.db}
}

// Create inserts a selection. An empty ID is filled with a new UUID and
// CreatedAt is set to now when zero.
func (r *SelectionRepository) Create(sel *Selection) error {
	if sel.Zone == "" {
		return errors.New("selection zone is required")
	}
	if sel.ID == "" {
		sel.ID = uuid.New().String()
	}
	if sel.CreatedAt.IsZero() {
		sel.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO selections (id, device_id, qr_id, zone, title, video_url, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sel.ID, sel.DeviceID, sel.QRID, sel.Zone, sel.Title, sel.VideoURL, sel.Source, sel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert selection: %w", err)
	}
	return nil
}

// GetByID retrieves a selection by its ID.
func (r *SelectionRepository) GetByID(id string) (*Selection, error) {
	sel := &Selection{}
	err := r.db.QueryRow(
		`SELECT id, device_id, qr_id, zone, title, video_url, source, created_at
		 FROM selections WHERE id = ?`,
		id,
	).Scan(&sel.ID, &sel.DeviceID, &sel.QRID, &sel.Zone, &sel.Title, &sel.VideoURL, &sel.Source, &sel.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sel, nil
}

// List returns the most recent selections first. A limit of zero or less
// returns all of them.
func (r *SelectionRepository) List(limit int) ([]*Selection, error) {
	query := `SELECT id, device_id, qr_id, zone, title, video_url, source, created_at
		 FROM selections ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var selections []*Selection
	for rows.Next() {
		sel := &Selection{}
		err := rows.Scan(&sel.ID, &sel.DeviceID, &sel.QRID, &sel.Zone, &sel.Title, &sel.VideoURL, &sel.Source, &sel.CreatedAt)
		if err != nil {
			return nil, err
		}
		selections = append(selections, sel)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return selections, nil
}

// CountByZone returns how often each zone was selected, most popular first.
func (r *SelectionRepository) CountByZone() ([]ZoneCount, error) {
	rows, err := r.db.Query(
		`SELECT zone, COUNT(*) FROM selections GROUP BY zone ORDER BY COUNT(*) DESC, zone`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ZoneCount
	for rows.Next() {
		var c ZoneCount
		if err := rows.Scan(&c.Zone, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Delete removes a selection by its ID.
func (r *SelectionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM selections WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
