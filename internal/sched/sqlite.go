package sched

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	logx "postbot/pkg/logx"
)

//go:embed schema.sql
var schemaFS embed.FS

// sqliteStore keeps the pending set in a SQLite database. Unlike the file
// driver it tracks the max-ever id in a high-water row, so allocator
// recovery does not depend on deleted rows still being present.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLiteStore(cfg StoreConfig, log logx.Logger) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Load(ctx context.Context) ([]Job, uint64, error) {
	var highWater uint64
	if err := s.db.QueryRowContext(ctx, `SELECT high_water FROM id_seq WHERE k = 1`).Scan(&highWater); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, due_time, chat, body, media_path, caption, origin, created_at
		 FROM jobs ORDER BY id`)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var jobs []Job
	maxID := highWater
	for rows.Next() {
		var (
			j            Job
			due, created string
			chat, body   sql.NullString
			media, capt  sql.NullString
			origin       sql.NullString
		)
		if err := rows.Scan(&j.ID, &j.Kind, &due, &chat, &body, &media, &capt, &origin, &created); err != nil {
			return nil, 0, err
		}
		j.Due, err = time.Parse(time.RFC3339Nano, due)
		if err != nil {
			// One bad row should not take the whole store down.
			s.log.Error("skipping job row with bad due_time",
				logx.Uint64("id", j.ID), logx.String("due_time", due), logx.Err(err))
			if j.ID > maxID {
				maxID = j.ID
			}
			continue
		}
		j.Created, _ = time.Parse(time.RFC3339Nano, created)
		j.Chat = chat.String
		j.Text = body.String
		j.MediaPath = media.String
		j.Caption = capt.String
		j.Origin = origin.String
		if j.ID > maxID {
			maxID = j.ID
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return jobs, maxID, nil
}

func (s *sqliteStore) Save(ctx context.Context, jobs []Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return err
	}
	var maxID uint64
	for _, j := range jobs {
		if j.ID > maxID {
			maxID = j.ID
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (id, kind, due_time, chat, body, media_path, caption, origin, created_at)
			 VALUES (?,?,?,?,?,?,?,?,?)`,
			j.ID, string(j.Kind), j.Due.Format(time.RFC3339Nano),
			nullStr(j.Chat), nullStr(j.Text), nullStr(j.MediaPath), nullStr(j.Caption), nullStr(j.Origin),
			j.Created.Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE id_seq SET high_water = MAX(high_water, ?) WHERE k = 1`, maxID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}
