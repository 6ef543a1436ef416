package sched

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "postbot/pkg/logx"
)

// Store is the durable persistence behind one scheduler instance.
//
// Load returns every pending record plus the maximum id across all records
// read, including ones the scheduler will subsequently drop, so the id
// allocator can resume above ids that are no longer pending. Save overwrites
// the full pending set.
type Store interface {
	Load(ctx context.Context) (jobs []Job, maxID uint64, err error)
	Save(ctx context.Context, jobs []Job) error
	Close() error
}

// StoreConfig selects and configures a Store driver.
//
// Driver values:
//   - "file" (or empty): flat JSON file
//   - "sqlite": SQLite database file
type StoreConfig struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// OpenStore initializes the configured store driver.
func OpenStore(cfg StoreConfig, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("store path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFileStore(cfg.Path, log)
	case "sqlite", "sqlite3":
		return openSQLiteStore(cfg, log)
	default:
		return nil, errors.New("unknown store driver: " + cfg.Driver)
	}
}
