package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/storefront-session/fakebackend"
	"github.com/jrsteele09/storefront-session/internal/config"
	"github.com/jrsteele09/storefront-session/server"
	"github.com/jrsteele09/storefront-session/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront web shell on localhost",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), config.New(), cmd.OutOrStdout())
		},
	}
}

func newMockBackendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mock-backend",
		Short: "Run an in-memory stand-in for the backend auth API (admin/admin, user/user)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMockBackend(cmd.Context(), config.New(), cmd.OutOrStdout())
		},
	}
}

func runServe(ctx context.Context, cfg config.Config, out io.Writer) error {
	displayAppname(out, cfg.GetAppName())

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	srv, err := server.New(cfg, a.session, a.client, a.store)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: cfg.GetPort(), Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	// Guarded pages show a placeholder until boot settles
	tasks := []func(context.Context) error{
		func(ctx context.Context) error {
			a.session.Boot(ctx)
			return nil
		},
	}
	if interval := cfg.GetRevalidateInterval(); interval > 0 {
		tasks = append(tasks, func(ctx context.Context) error {
			revalidateLoop(ctx, a.session, interval)
			return nil
		})
	}
	return serveUntilDone(ctx, httpServer, tasks...)
}

func runMockBackend(ctx context.Context, cfg config.Config, out io.Writer) error {
	displayAppname(out, "mock backend")

	backend := fakebackend.New(cfg.GetMockSigningSecret(), cfg.GetMockTokenExpiry())
	if err := backend.SeedDefaults(); err != nil {
		return fmt.Errorf("[cli runMockBackend] seeding accounts: %w", err)
	}
	log.Info().Str("auth_base", "http://localhost"+cfg.GetMockBackendPort()+fakebackend.AuthBase).Msg("mock backend ready")

	httpServer := &http.Server{Addr: cfg.GetMockBackendPort(), Handler: backend, ReadHeaderTimeout: 10 * time.Second}
	return serveUntilDone(ctx, httpServer)
}

// serveUntilDone runs the server and tasks until ctx is done or one of them
// fails, then shuts the server down gracefully
func serveUntilDone(ctx context.Context, httpServer *http.Server, tasks ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return listenAndServe(httpServer)
	})
	for _, task := range tasks {
		g.Go(func() error {
			return task(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(httpServer)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// revalidateLoop re-checks the session every interval so a token revoked
// on the backend ends the session without waiting for a failing API call
func revalidateLoop(ctx context.Context, sess *session.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sess.Revalidate(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("Periodic session revalidation failed")
			}
		}
	}
}

func displayAppname(out io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(out, myFigure.String())
}
