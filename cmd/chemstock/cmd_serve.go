package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/chemstock/internal/domain/usecases"
	chttp "github.com/0xcro3dile/chemstock/internal/infrastructure/http"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		inMemory       bool
		remindInterval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			a, err := newApp(c.cfg, c.logger, inMemory)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := chttp.NewServer(a.services, chttp.Options{
				Addr:           c.cfg.Server.Addr,
				AllowedOrigins: c.cfg.Server.AllowedOrigins,
				MaxUploadBytes: c.cfg.MaxUploadBytes(),
				SecureCookie:   c.cfg.Auth.SecureCookie,
				Suggestions:    c.cfg.Import.Suggestions,
			}, c.logger.Named("http"))

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return srv.Start(ctx) })
			if remindInterval > 0 {
				g.Go(func() error {
					remindLoop(ctx, a.services.Borrowings, remindInterval, c.logger)
					return nil
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "keep all data in memory (demo mode)")
	cmd.Flags().DurationVar(&remindInterval, "remind-interval", time.Hour, "how often overdue borrowers are reminded (0 disables)")
	return cmd
}

// remindLoop sends overdue reminders every interval until ctx is done.
func remindLoop(ctx context.Context, borrowings *usecases.BorrowingUseCase, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := borrowings.RemindOverdue(ctx)
			if err != nil {
				logger.Warn("overdue reminders failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("overdue reminders sent", zap.Int("count", n))
			}
		}
	}
}
