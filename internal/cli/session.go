package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/tickerguard/internal/app"
	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/audit/section"
	"github.com/roach88/tickerguard/internal/config"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/platform"
	"github.com/roach88/tickerguard/internal/repo"
	"github.com/roach88/tickerguard/internal/store"
)

// session is one command's view of the persisted state: the config, the
// open store and the app wired over the restored repositories.
type session struct {
	cfg      *config.Config
	store    *store.Store
	app      *app.App
	platform *platform.Memory
	logger   *slog.Logger
	restored bool
}

// sessionOptions tune openSession for a command.
type sessionOptions struct {
	metrics *audit.Metrics
	orders  []model.Order
}

// newLogger builds the command logger: text to w, debug when verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads --config (defaults when unset) and applies --db.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.LoadWithDefaults(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	return cfg, nil
}

// openSession loads the config, opens the database and restores the saved
// snapshot. The platform is in-memory: its symbol-search catalogue is the
// stored pairs and its orders are so.orders.
func openSession(ctx context.Context, opts *RootOptions, logOut io.Writer, so sessionOptions) (*session, error) {
	logger := newLogger(opts, logOut)

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger.Debug("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	set := repo.NewSet()
	restored, err := st.LoadInto(ctx, set)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load snapshot", err)
	}

	mem := platform.NewMemory()
	for _, inv := range set.Pairs.Keys() {
		info, _ := set.Pairs.Get(inv)
		mem.AddPairs(info)
	}
	mem.SetOrders(so.orders...)

	notifier := platform.LogNotifier{Logger: logger}
	a, err := app.New(app.Options{
		Config:    cfg,
		Repos:     set,
		Alerts:    mem,
		Search:    mem,
		Orders:    mem,
		Feed:      notifier,
		Reporter:  notifier,
		Navigator: section.LogNavigator{Logger: logger},
		Metrics:   so.metrics,
		Logger:    logger,
	})
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to build app", err)
	}

	logger.Debug("session ready", "restored", restored, "pairs", set.Pairs.Len(), "tickers", set.Tickers.Len())
	return &session{
		cfg:      cfg,
		store:    st,
		app:      a,
		platform: mem,
		logger:   logger,
		restored: restored,
	}, nil
}

// save waits for dispatched remote calls and persists the repositories.
func (s *session) save(ctx context.Context) (string, error) {
	s.app.Wait()
	digest, err := s.store.SaveSnapshot(ctx, s.app.Repos.Snapshot(), time.Now())
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to save snapshot", err)
	}
	s.logger.Debug("snapshot saved", "digest", digest)
	return digest, nil
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// referenceExit maps unknown-reference errors to a command error and
// everything else to a failure.
func referenceExit(message string, err error) error {
	if model.IsReferenceError(err) {
		return WrapExitError(ExitCommandError, message, err)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return WrapExitError(ExitFailure, message, err)
}
