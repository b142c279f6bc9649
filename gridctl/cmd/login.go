package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridstream-io/gridstream/gridctl/internal/client"
	"github.com/gridstream-io/gridstream/gridctl/internal/config"
	"github.com/gridstream-io/gridstream/gridctl/pkg/output"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the coordinator",
	Long:  "Authenticate against the coordinator admin surface and save the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		coordinatorURL, _ := cmd.Flags().GetString("coordinator-url")
		profile, _ := cmd.Flags().GetString("profile")

		if !cmd.Flags().Changed("coordinator-url") {
			coordinatorURL = cfg.CoordinatorURL(profile)
		}

		if username == "" {
			return fmt.Errorf("username is required")
		}
		if password == "" {
			return fmt.Errorf("password is required")
		}

		admin := client.NewAdminClient(coordinatorURL)
		resp, err := admin.Login(username, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		prev, _ := cfg.GetProfile(profile)
		p := &config.Profile{CoordinatorURL: coordinatorURL, AdminToken: resp.Token}
		if prev != nil {
			p.WorkerURL = prev.WorkerURL
		}
		if err := cfg.SaveProfile(profile, p); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		output.Success("Logged in as %s", username)
		output.Info("Token valid until %s", resp.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	loginCmd.Flags().String("username", "", "admin username")
	loginCmd.Flags().String("password", "", "admin password")
	loginCmd.Flags().String("coordinator-url", "", "coordinator base URL")

	rootCmd.AddCommand(loginCmd)
}
