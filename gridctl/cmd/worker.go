package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/gridstream-io/gridstream/gridctl/pkg/output"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Worker registry commands",
}

var workerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, token, err := adminSession(cmd)
		if err != nil {
			return err
		}

		workers, err := admin.ListWorkers(token)
		if err != nil {
			return err
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(workers)
		}

		table := output.NewTable([]string{"WORKER ID", "PERSONALITY", "STATUS", "HOSTNAME", "CALLBACK", "LAST SEEN"})
		for _, w := range workers {
			lastSeen := "never"
			if !w.LastSeen.IsZero() {
				lastSeen = w.LastSeen.Local().Format(time.RFC3339)
			}
			table.AddRow([]string{
				w.WorkerID,
				w.Personality.String(),
				string(w.Status),
				w.Hostname,
				w.Callback,
				lastSeen,
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	workerCmd.AddCommand(workerListCmd)
	rootCmd.AddCommand(workerCmd)
}
