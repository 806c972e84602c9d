package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fleetops/dispatchd/config"
	"github.com/fleetops/dispatchd/core/batch"
	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/infra/logger"
)

var planInput string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build batches from a JSON file of pending orders",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planInput, "orders", "orders.json", "JSON file with an array of orders")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	data, err := os.ReadFile(planInput)
	if err != nil {
		return fmt.Errorf("read orders: %w", err)
	}
	var orders []model.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return fmt.Errorf("parse orders: %w", err)
	}

	engine, err := batch.NewEngine(cfg.Batch, cfg.SLA, batch.NewMemoryStore(), logger.New("plan-command"))
	if err != nil {
		return fmt.Errorf("batch engine: %w", err)
	}
	res, err := engine.Plan(ctx, orders)
	if err != nil {
		return err
	}
	for _, b := range res.Batches {
		fmt.Fprintf(cmd.OutOrStdout(), "%s service=%s size=%d radius=%.2fkm efficiency=%.2f sequence=%v\n",
			b.ID, b.Service, b.Size(), b.RadiusKm, b.Efficiency, b.Sequence)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "batches=%d unbatchable=%d\n", len(res.Batches), len(res.Unbatchable))
	return nil
}
