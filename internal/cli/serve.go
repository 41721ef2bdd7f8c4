package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	commenthttp "github.com/MyNameIsWhaaat/commentthread/internal/comment/handler/http"
	"github.com/MyNameIsWhaaat/commentthread/internal/comment/worker"
)

func init() {
	serveCmd.Flags().Bool("seed", false, "load demo data before serving")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.close(context.WithoutCancel(ctx)); err != nil {
				log.Error().Err(err).Msg("shutdown_close_failed")
			}
		}()

		if withSeed, _ := cmd.Flags().GetBool("seed"); withSeed {
			n, err := seed(ctx, a.backend.Seeder, a.svc)
			if err != nil {
				return err
			}
			log.Info().Int("comments", n).Msg("demo_data_seeded")
		}

		if cfg.Reconcile.Enabled {
			w, err := worker.NewReconcile(cfg.Reconcile.Cron, a.svc, log.With().Str("component", "reconcile").Logger())
			if err != nil {
				return err
			}
			go w.Run(ctx)
		}

		h := commenthttp.New(a.svc, log, a.metrics, commenthttp.Config{
			RequestTimeout: cfg.HTTP.RequestTimeout.Duration,
			RateLimit:      cfg.HTTP.RateLimit,
			RateBurst:      cfg.HTTP.RateBurst,
		})
		defer h.Close()
		srv := &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      h.Routes(),
			ReadTimeout:  cfg.HTTP.ReadTimeout.Duration,
			WriteTimeout: cfg.HTTP.WriteTimeout.Duration,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.HTTP.Addr).Msg("http_listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("http_shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
