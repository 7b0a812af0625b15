package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/taller/internal/catalog"
	"github.com/runger/taller/internal/config"
	"github.com/runger/taller/internal/logging"
	"github.com/runger/taller/internal/order"
	"github.com/runger/taller/internal/typeahead"
)

// session holds what every command starts from.
type session struct {
	cfg    *config.Config
	paths  *config.Paths
	logger *slog.Logger
	logOut io.Closer
}

// openSession loads the configuration and builds the logger. With toFile
// the log goes to the log file (the terminal belongs to the command's
// output), otherwise to stderr.
func openSession(cmd *cobra.Command, toFile bool) (*session, error) {
	paths := config.DefaultPaths()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, paths: paths}
	out := cmd.ErrOrStderr()
	if toFile {
		f, err := logging.OpenFile(cfg.LogPath(paths))
		if err != nil {
			return nil, err
		}
		out = f
		s.logOut = f
	}
	s.logger = logging.New(&logging.Config{Output: out, Level: level})

	info := logging.StartupInfo{
		Command:    cmd.CommandPath(),
		Version:    Version,
		ConfigPath: paths.ConfigFile(),
		Mode:       cfg.Search.Mode,
		PID:        os.Getpid(),
	}
	if cfg.Catalog.UseForLocal {
		info.CatalogPath = cfg.CatalogPath(paths)
	}
	logging.LogStartup(s.logger, info)
	return s, nil
}

func (s *session) close(reason string) {
	logging.LogShutdown(s.logger, reason)
	if s.logOut != nil {
		_ = s.logOut.Close()
	}
}

// openCatalog opens the configured catalog database.
func (s *session) openCatalog() (*catalog.Store, error) {
	if err := s.paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	store, err := catalog.Open(s.cfg.CatalogPath(s.paths), s.logger)
	if err != nil {
		logging.LogSQLiteError(s.logger, "open catalog", err)
		return nil, err
	}
	if v, err := store.SchemaVersion(context.Background()); err == nil {
		s.logger.Debug("catalog opened", "path", s.cfg.CatalogPath(s.paths), "schema_version", v)
	}
	return store, nil
}

// datasets returns the local search data read from the catalog, or nil
// when the catalog is not used for local search. Fields without catalog
// records are left out so they fall back to the built-in data.
func (s *session) datasets(ctx context.Context) (map[order.Field][]typeahead.Candidate, error) {
	if !s.cfg.Catalog.UseForLocal {
		return nil, nil
	}
	store, err := s.openCatalog()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	out := make(map[order.Field][]typeahead.Candidate, len(order.Fields))
	for _, f := range order.Fields {
		records, err := store.List(ctx, string(f))
		if err != nil {
			return nil, fmt.Errorf("load %s records: %w", f, err)
		}
		if len(records) == 0 {
			s.logger.Warn("catalog has no records, using built-in data", "field", f)
			continue
		}
		out[f] = records
	}
	return out, nil
}

// endpoints maps the configured endpoints onto form fields.
func (s *session) endpoints() map[order.Field]string {
	out := make(map[order.Field]string, len(order.Fields))
	for name, url := range s.cfg.Search.Endpoints.Map() {
		if f, ok := order.ParseField(name); ok {
			out[f] = url
		}
	}
	return out
}

// mountForm mounts the order form as configured.
func (s *session) mountForm(ctx context.Context, onChange func(order.Field)) (*order.Form, error) {
	mode, err := typeahead.ParseMode(s.cfg.Search.Mode)
	if err != nil {
		return nil, err
	}
	datasets, err := s.datasets(ctx)
	if err != nil {
		return nil, err
	}
	return order.Mount(order.NewPage(), order.Options{
		Mode:      mode,
		Endpoints: s.endpoints(),
		Datasets:  datasets,
		Debounce:  s.cfg.Search.Debounce(),
		Timeout:   s.cfg.Search.Timeout(),
		Logger:    s.logger,
		OnChange:  onChange,
	})
}
