package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var statsWatch bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print resource governor health, last resource sample and circuit breaker states",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		go e.Governor.Start(ctx)
		defer e.Governor.Shutdown()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		print := func() error {
			breakerStates := make(map[string]string)
			for service, state := range e.Breakers.States() {
				breakerStates[service] = state.String()
			}
			return enc.Encode(map[string]any{
				"health":      e.Governor.Health(),
				"snapshot":    e.Governor.Snapshot(),
				"breakers":    breakerStates,
				"breakerTrips": e.Breakers.TripCounts(),
			})
		}

		// Give the first sample a moment to land before printing.
		time.Sleep(250 * time.Millisecond)
		if err := print(); err != nil {
			return err
		}
		if !statsWatch {
			return nil
		}

		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := print(); err != nil {
					return err
				}
			}
		}
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsWatch, "watch", false, "keep printing stats every 5s until interrupted")
	rootCmd.AddCommand(statsCmd)
}
