package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/tickerguard/internal/audit"
)

// settleDelay batches bursts of database writes into one re-audit.
const settleDelay = 500 * time.Millisecond

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Interval    string
	MetricsAddr string
	Once        bool
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-audit on a schedule and whenever the database changes",
		Long: `Run every enabled audit plugin on an interval, and again whenever another
tickerguard process saves new repository state to the database. Each run is
recorded in the audit history. With --metrics-addr the latest results are
served as Prometheus metrics on /metrics.

Example:
  tickerguard watch --db ./tickerguard.db --interval 5m --metrics-addr :9464`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Interval, "interval", "", "audit interval (default watch.interval)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (default watch.metrics_addr)")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "run a single audit and exit")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s, err := openSession(ctx, opts.RootOptions, cmd.ErrOrStderr(), sessionOptions{metrics: audit.NewMetrics(reg)})
	if err != nil {
		return err
	}
	defer s.close()

	interval := s.cfg.WatchInterval()
	if opts.Interval != "" {
		interval, err = time.ParseDuration(opts.Interval)
		if err != nil || interval <= 0 {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --interval %q", opts.Interval))
		}
	}
	addr := s.cfg.Watch.MetricsAddr
	if opts.MetricsAddr != "" {
		addr = opts.MetricsAddr
	}

	w := &watcher{session: s, cmd: cmd, formatter: opts.formatter(cmd)}
	if err := w.audit(ctx); err != nil {
		return err
	}
	if opts.Once {
		return nil
	}

	if addr != "" {
		srv := serveMetrics(addr, reg, s)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to watch database", err)
	}
	defer fsw.Close()
	dbPath := s.cfg.Database.Path
	if err := fsw.Add(filepath.Dir(dbPath)); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch database", err)
	}

	s.logger.Info("watching", "db", dbPath, "interval", interval, "metrics_addr", addr)
	return w.loop(ctx, fsw, dbPath, interval)
}

// serveMetrics starts the /metrics endpoint in the background.
func serveMetrics(addr string, reg *prometheus.Registry, s *session) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return srv
}

// watcher re-audits the session's repositories.
type watcher struct {
	session   *session
	cmd       *cobra.Command
	formatter *OutputFormatter
	digest    string
}

// loop audits on every tick and after database writes settle, until ctx ends.
func (w *watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, dbPath string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	base := filepath.Base(dbPath)

	for {
		select {
		case <-ctx.Done():
			w.session.logger.Info("watch stopped")
			return nil
		case <-ticker.C:
			if err := w.audit(ctx); err != nil {
				return err
			}
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), base) && ev.Op.Has(fsnotify.Write|fsnotify.Create) {
				settle.Reset(settleDelay)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.session.logger.Warn("database watch error", "error", err)
		case <-settle.C:
			if err := w.reloadIfChanged(ctx); err != nil {
				return err
			}
		}
	}
}

// reloadIfChanged restores and re-audits when another process saved a new
// snapshot. Our own audit-history writes leave the digest unchanged.
func (w *watcher) reloadIfChanged(ctx context.Context) error {
	digest, err := w.session.store.LastDigest(ctx)
	if err != nil || digest == w.digest {
		return nil
	}
	if _, err := w.session.store.LoadInto(ctx, w.session.app.Repos); err != nil {
		return WrapExitError(ExitCommandError, "failed to reload snapshot", err)
	}
	w.session.logger.Info("snapshot changed, re-auditing", "digest", shortDigest(digest))
	return w.audit(ctx)
}

func (w *watcher) audit(ctx context.Context) error {
	s := w.session
	report, err := s.app.Audit(ctx, nil, nil)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return WrapExitError(ExitFailure, "audit failed", err)
	}
	if err := recordRun(w.cmd, s.store, s.app.Repos, report, nil); err != nil {
		return err
	}
	if d, err := s.store.LastDigest(ctx); err == nil {
		w.digest = d
	}

	failures := audit.Failures(report.Findings())
	summary := map[string]any{
		"run_id":   report.RunID,
		"failures": len(failures),
		"errors":   len(report.Errors()),
	}
	return w.formatter.SuccessText(summary, "run %s: failures=%d errors=%d",
		report.RunID, len(failures), len(report.Errors()))
}
