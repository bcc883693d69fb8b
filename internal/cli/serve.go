package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/seltree/internal/presentation/tui"
	seltreehttp "github.com/aretw0/seltree/pkg/adapters/http"
	"github.com/aretw0/seltree/pkg/observability"
	"github.com/aretw0/seltree/pkg/persistence/middleware"
)

const shutdownTimeout = 5 * time.Second

// Serve runs the HTTP agent API until ctx ends. With watch, definitions are
// reloaded on change and reloads are streamed on GET /events.
func Serve(ctx context.Context, opts Options, watch bool) error {
	ln, err := net.Listen("tcp", opts.Config.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.Config.HTTP.Addr, err)
	}
	return serve(ctx, opts, ln, watch)
}

func serve(ctx context.Context, opts Options, ln net.Listener, watch bool) error {
	w := opts.out()
	logger := createLogger(opts.Debug)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		_ = ln.Close()
		return err
	}

	eng, err := createEngine(opts, logger, metrics.Hooks())
	if err != nil {
		_ = ln.Close()
		return err
	}
	storeMetrics, err := middleware.NewMetricsMiddleware(reg)
	if err != nil {
		_ = ln.Close()
		return err
	}
	sessions, closeStore, err := setupSessions(eng, opts.Config.Store, logger, storeMetrics)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer closeStore()

	srvOpts := []seltreehttp.Option{
		seltreehttp.WithLogger(logger),
		seltreehttp.WithGatherer(reg),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if watch {
		feed := newReloadFeed()
		srvOpts = append(srvOpts, seltreehttp.WithWatcher(feed))
		go func() {
			err := eng.WatchAndReload(ctx, func(changed string, err error) {
				if err == nil {
					feed.publish(changed)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Handler:           seltreehttp.NewHandler(sessions, eng, srvOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(ln)
	}()

	printSystemMessage(w, "Serving %d template(s) from %s on %s (store: %s) %s",
		len(eng.Names()), opts.Config.Dir, ln.Addr(), opts.Config.Store.Backend, tui.Status(w, "ready", true))

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			_ = srv.Close()
		}
		printSystemMessage(w, "Server stopped.")
		return nil
	}
}
