package watermark

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLiteStore keeps one row per source.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	version, dirty, err := runMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("Watermark database ready", "path", path, "schema_version", version, "dirty", dirty)

	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) (uint, bool, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

func (s *SQLiteStore) Load(ctx context.Context) Marks {
	marks := Marks{}

	rows, err := s.db.QueryContext(ctx, `SELECT source, guid FROM watermarks`)
	if err != nil {
		slog.Warn("Failed to load watermarks, starting without cutoffs", "error", err)
		return Marks{}
	}
	defer rows.Close()

	for rows.Next() {
		var source, guid string
		if err := rows.Scan(&source, &guid); err != nil {
			slog.Warn("Failed to scan watermark row, starting without cutoffs", "error", err)
			return Marks{}
		}
		marks[source] = guid
	}

	if err := rows.Err(); err != nil {
		slog.Warn("Error iterating watermark rows, starting without cutoffs", "error", err)
		return Marks{}
	}

	return marks
}

// Save replaces every row in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, marks Marks) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM watermarks`); err != nil {
		return fmt.Errorf("failed to clear watermarks: %w", err)
	}

	for source, guid := range marks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO watermarks (source, guid, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
			source, guid)
		if err != nil {
			return fmt.Errorf("failed to store watermark for %s: %w", source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit watermarks: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
