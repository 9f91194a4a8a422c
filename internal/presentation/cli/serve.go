package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appinv "github.com/Zhima-Mochi/inventory-tracker/internal/application/inventory"
	"github.com/Zhima-Mochi/inventory-tracker/internal/infrastructure/config"
	"github.com/Zhima-Mochi/inventory-tracker/internal/observability"
	"github.com/Zhima-Mochi/inventory-tracker/internal/observability/logctx"
	httppresentation "github.com/Zhima-Mochi/inventory-tracker/internal/presentation/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory over HTTP; the snapshot is loaded at start and saved on shutdown",
		Args:  cobra.NoArgs,
		RunE: withApp(v, func(ctx context.Context, app *App) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Serve(ctx, app)
		}, appinv.WithDamagedSnapshotGuard()),
	}
	cmd.Flags().String("addr", "", "listen address (env HTTP_ADDR)")
	bindFlag(v, config.KeyHTTPAddr, cmd.Flags().Lookup("addr"))
	return cmd
}

// Serve runs the HTTP API until ctx is done, then shuts down and saves. The
// final save is skipped by the service when a reload found a damaged snapshot.
func Serve(ctx context.Context, app *App) error {
	logger := logctx.FromOr(ctx, app.Tel.Logger())

	if err := loadForUpdate(ctx, app); err != nil {
		return err
	}

	handler := httppresentation.NewHandler(app.Service, app.Config.Inventory.LowStockThreshold, logger, app.Tel,
		httppresentation.WithRateLimit(app.Config.HTTP.RateLimit, app.Config.HTTP.RateBurst),
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              app.Config.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_server_start",
			observability.F("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error",
				observability.F("error", err),
			)
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error",
			observability.F("error", err),
		)
	} else {
		logger.Info("http_server_stopped")
	}

	app.Service.Save(shutdownCtx)
	return serveErr
}
