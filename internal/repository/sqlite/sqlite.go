package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"diagramd/internal/domain"

	_ "modernc.org/sqlite"
)

// Store implements repository.PositionStore using SQLite
type Store struct {
	db *sql.DB
}

// New opens or creates the database at dbPath. ":memory:" opens a private
// in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps in-memory databases shared and serializes writers
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS positions (
		diagram TEXT NOT NULL,
		element_id TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		width REAL,
		height REAL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (diagram, element_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SavePositions upserts the geometry of the given elements
func (s *Store) SavePositions(ctx context.Context, diagram string, positions map[string]domain.Bounds) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (diagram, element_id, x, y, width, height)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (diagram, element_id) DO UPDATE SET
			x = excluded.x,
			y = excluded.y,
			width = excluded.width,
			height = excluded.height,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for id, b := range positions {
		if _, err := stmt.ExecContext(ctx, diagram, id, b.X, b.Y, sizeToNull(b.Width), sizeToNull(b.Height)); err != nil {
			return fmt.Errorf("failed to save position for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Positions returns the stored geometry of a diagram
func (s *Store) Positions(ctx context.Context, diagram string) (map[string]domain.Bounds, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT element_id, x, y, width, height
		FROM positions
		WHERE diagram = ?
	`, diagram)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := make(map[string]domain.Bounds)
	for rows.Next() {
		var (
			id            string
			x, y          float64
			width, height sql.NullFloat64
		)
		if err := rows.Scan(&id, &x, &y, &width, &height); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions[id] = domain.Bounds{X: x, Y: y, Width: nullToSize(width), Height: nullToSize(height)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

// DeleteDiagram removes all geometry of a diagram
func (s *Store) DeleteDiagram(ctx context.Context, diagram string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE diagram = ?`, diagram); err != nil {
		return fmt.Errorf("failed to delete diagram %s: %w", diagram, err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
