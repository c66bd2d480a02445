package store

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"

	"gatherbot/internal/model"
)

const DriverName = "sqlite3"

// SQLiteBackend keeps one row per event. The payload column holds the same
// YAML record the file backend writes, so both backends share one format.
type SQLiteBackend struct {
	db *sqlx.DB
}

type eventRow struct {
	Name     string `db:"name"`
	Position int    `db:"position"`
	Kind     string `db:"kind"`
	Payload  string `db:"payload"`
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, err
	}
	b, err := NewSQLiteBackend(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func NewSQLiteBackend(db *sql.DB) (*SQLiteBackend, error) {
	b := &SQLiteBackend{db: sqlx.NewDb(db, DriverName)}
	if err := b.RunMigrations(); err != nil {
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) RunMigrations() error {
	for _, m := range migrations {
		if _, err := b.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS events (
		name VARCHAR NOT NULL PRIMARY KEY,
		position INTEGER NOT NULL,
		kind VARCHAR NOT NULL,
		payload TEXT NOT NULL
	)`,
}

func (b *SQLiteBackend) Load() ([]*model.Event, error) {
	var rows []eventRow
	err := b.db.Select(&rows, `
		SELECT name, position, kind, payload
		FROM events
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}

	records := make([]record, 0, len(rows))
	for _, row := range rows {
		var r record
		if err := yaml.Unmarshal([]byte(row.Payload), &r); err != nil {
			return nil, fmt.Errorf("event %q: payload: %w", row.Name, err)
		}
		if r.Name != row.Name {
			return nil, fmt.Errorf("event %q: payload names %q", row.Name, r.Name)
		}
		records = append(records, r)
	}
	return decodeRecords(records)
}

func (b *SQLiteBackend) Save(events []*model.Event) error {
	records, err := encodeEvents(events)
	if err != nil {
		return err
	}

	tx, err := b.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM events`); err != nil {
		return err
	}
	for i, r := range records {
		payload, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO events (name, position, kind, payload)
			VALUES (?, ?, ?, ?)
		`, r.Name, i, string(r.Kind), string(payload))
		if err != nil {
			return fmt.Errorf("event %q: %w", r.Name, err)
		}
	}
	return tx.Commit()
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
