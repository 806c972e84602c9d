package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetops/dispatchd/config"
	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/sla"
)

var (
	checkService string
	checkAge     int
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate the SLA status of a synthetic order",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkService, "service", "BARQ", "service type (BARQ or BULLET)")
	checkCmd.Flags().IntVar(&checkAge, "age", 0, "order age in minutes")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc := model.ServiceType(checkService)
	if svc != model.ServiceBarq && svc != model.ServiceBullet {
		return fmt.Errorf("unknown service type %q", checkService)
	}
	now := time.Now()
	ord := model.Order{
		ID:        "synthetic-check",
		Service:   svc,
		Status:    model.StatusAssigned,
		CreatedAt: now.Add(-time.Duration(checkAge) * time.Minute),
		Pickup:    model.LatLng{Lat: 24.70, Lng: 46.60},
		Dropoff:   model.LatLng{Lat: 24.72, Lng: 46.62},
	}
	st := sla.NewMonitor(cfg.SLA).Check(ord, now, nil)
	fmt.Fprintf(cmd.OutOrStdout(), "service=%s age=%dm category=%s remaining=%.1fm can_meet=%v\n",
		svc, checkAge, st.Category, st.RemainingMinutes, st.CanMeetSLA)
	return nil
}
