package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridstream-io/gridstream/gridctl/internal/client"
	"github.com/gridstream-io/gridstream/gridctl/internal/seeder"
	"github.com/gridstream-io/gridstream/gridctl/pkg/output"
)

var seedCmd = &cobra.Command{
	Use:   "seed <tenant-id>",
	Short: "Push synthetic events into a worker intake",
	Long: `Generate fake events and send them to a worker's HTTP intake.

A scenario YAML file can override the producer names, hostnames, event
count, and the time window the events are spread across.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID := args[0]
		tenantToken, _ := cmd.Flags().GetString("token")
		workerURL, _ := cmd.Flags().GetString("worker-url")
		scenarioFile, _ := cmd.Flags().GetString("scenario")
		count, _ := cmd.Flags().GetInt("count")
		spread, _ := cmd.Flags().GetDuration("spread")

		if tenantToken == "" {
			return fmt.Errorf("tenant token is required")
		}
		if workerURL == "" {
			profile, _ := cmd.Flags().GetString("profile")
			p, err := cfg.GetProfile(profile)
			if err != nil || p.WorkerURL == "" {
				return fmt.Errorf("worker URL is required (--worker-url or profile)")
			}
			workerURL = p.WorkerURL
		}

		scenario, err := seeder.LoadScenario(scenarioFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("count") {
			scenario.Count = count
		}
		if cmd.Flags().Changed("spread") {
			scenario.Spread = spread
		}

		output.Info("Seeding %d events for tenant %s over %s", scenario.Count, tenantID, scenario.Spread)

		intake := client.NewIntakeClient(workerURL)
		sent, failed := 0, 0
		start := time.Now()
		for i := 0; i < scenario.Count; i++ {
			event := seeder.GenerateEvent(scenario, i)
			if err := intake.SendEvent(tenantID, tenantToken, event); err != nil {
				failed++
				if failed == 1 {
					output.Warn("Send failed: %v", err)
				}
				continue
			}
			sent++
		}

		if failed > 0 {
			output.Warn("%d of %d events failed to send", failed, scenario.Count)
		}
		output.Success("Sent %d events in %s", sent, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	seedCmd.Flags().String("token", "", "tenant token for intake authentication")
	seedCmd.Flags().String("worker-url", "", "worker intake base URL")
	seedCmd.Flags().String("scenario", "", "scenario YAML file")
	seedCmd.Flags().Int("count", 100, "number of events")
	seedCmd.Flags().Duration("spread", time.Hour, "window the event times are spread across")

	rootCmd.AddCommand(seedCmd)
}
