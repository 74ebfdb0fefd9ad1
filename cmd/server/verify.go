package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lumashape/insert-pricing/internal/money"
	"github.com/lumashape/insert-pricing/internal/orders"
)

var errTotalsMismatch = errors.New("stored totals do not match recomputation")

func newVerifyCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "verify <order-id>...",
		Short: "Re-derive stored orders' totals from their own parameter snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			// Verification never needs the cache or the broker.
			cfg.Redis.Addr = ""
			cfg.Kafka.Brokers = nil

			a, err := openApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.close(); err != nil {
					logger.Warn("close resources", zap.Error(err))
				}
			}()

			return verifyOrders(cmd.Context(), cmd.OutOrStdout(), a.service, args)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (defaults to DB_PATH)")
	return cmd
}

func verifyOrders(ctx context.Context, w io.Writer, svc *orders.Service, ids []string) error {
	failed := 0
	for _, id := range ids {
		v, err := svc.Verify(ctx, id)
		if err != nil {
			return fmt.Errorf("verify %s: %w", id, err)
		}
		status := "ok"
		if !v.Matches {
			status = "MISMATCH"
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\tstored=%s\trecomputed=%s\n",
			v.OrderID, status, money.FormatUSD(v.Stored.CustomerTotal), money.FormatUSD(v.Recomputed.CustomerTotal))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d orders: %w", failed, len(ids), errTotalsMismatch)
	}
	return nil
}
