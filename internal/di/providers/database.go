package providers

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/do/v2"

	"github.com/listenupapp/recall-server/internal/config"
	"github.com/listenupapp/recall-server/internal/logger"
	"github.com/listenupapp/recall-server/internal/store"
	"github.com/listenupapp/recall-server/internal/store/kv"
	"github.com/listenupapp/recall-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store selected by DB_DRIVER.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	st, err := OpenStore(cfg.Database, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized",
		"driver", cfg.Database.Driver,
		"path", cfg.Database.StorePath(),
	)

	return &StoreHandle{Store: st}, nil
}

// OpenStore opens the backend named by db.Driver, creating the data
// directory first. The seed and operator tools share it with the server.
func OpenStore(db config.DatabaseConfig, logger *slog.Logger) (store.Store, error) {
	if err := os.MkdirAll(db.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data path: %w", err)
	}

	var (
		st  store.Store
		err error
	)
	switch db.Driver {
	case config.DriverSQLite:
		st, err = openSQLite(db.StorePath(), logger)
	case config.DriverBadger:
		st, err = openBadger(db.StorePath(), logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", db.Driver, err)
	}
	return st, nil
}

func openSQLite(path string, logger *slog.Logger) (store.Store, error) {
	s, err := sqlite.Open(path, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openBadger(path string, logger *slog.Logger) (store.Store, error) {
	s, err := kv.Open(path, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}
