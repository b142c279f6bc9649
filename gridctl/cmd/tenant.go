package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridstream-io/gridstream/gridctl/internal/client"
	"github.com/gridstream-io/gridstream/gridctl/pkg/output"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Tenant management commands",
	Long:  "Create tenants and manage their tokens, hosts, and event producers",
}

// adminSession resolves the current profile into a client plus token.
func adminSession(cmd *cobra.Command) (*client.AdminClient, string, error) {
	profile, _ := cmd.Flags().GetString("profile")
	p, err := cfg.GetProfile(profile)
	if err != nil {
		return nil, "", err
	}
	if p.AdminToken == "" {
		return nil, "", fmt.Errorf("not logged in, run 'gridctl login' first")
	}
	return client.NewAdminClient(p.CoordinatorURL), p.AdminToken, nil
}

var tenantCreateCmd = &cobra.Command{
	Use:   "create <tenant-id>",
	Short: "Create a tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, token, err := adminSession(cmd)
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("name")
		tenant, err := admin.CreateTenant(token, args[0], name)
		if err != nil {
			return err
		}

		output.Success("Tenant %s created", tenant.TenantID)
		output.Info("Token: %s", tenant.Token.Valid)
		output.Warn("Store this token now, it is only shown in full at creation")
		return nil
	},
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, token, err := adminSession(cmd)
		if err != nil {
			return err
		}

		tenants, err := admin.ListTenants(token)
		if err != nil {
			return err
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(tenants)
		}

		table := output.NewTable([]string{"TENANT ID", "NAME", "CREATED"})
		for _, t := range tenants {
			table.AddRow([]string{t.TenantID, t.Name, t.CreatedAt.Format("2006-01-02 15:04")})
		}
		table.Render()
		return nil
	},
}

var tenantShowCmd = &cobra.Command{
	Use:   "show <tenant-id>",
	Short: "Show a tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, token, err := adminSession(cmd)
		if err != nil {
			return err
		}

		tenants, err := admin.ListTenants(token)
		if err != nil {
			return err
		}
		for _, t := range tenants {
			if t.TenantID == args[0] {
				return output.JSON(t)
			}
		}
		return fmt.Errorf("tenant %q not found", args[0])
	},
}

var tenantRotateTokenCmd = &cobra.Command{
	Use:   "rotate-token <tenant-id>",
	Short: "Rotate a tenant's token",
	Long:  "Mint a new tenant token; the prior secret keeps validating during the grace window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, token, err := adminSession(cmd)
		if err != nil {
			return err
		}

		rotated, err := admin.RotateToken(token, args[0])
		if err != nil {
			return err
		}

		output.Success("Token rotated for tenant %s", args[0])
		output.Info("New token: %s", rotated.Valid)
		output.Info("Previous token stays valid until the next rotation")
		return nil
	},
}

var tenantAddHostCmd = &cobra.Command{
	Use:   "add-host <tenant-id> <hostname>",
	Short: "Register a host under a tenant",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, token, err := adminSession(cmd)
		if err != nil {
			return err
		}

		ipv4, _ := cmd.Flags().GetString("ipv4")
		ipv6, _ := cmd.Flags().GetString("ipv6")
		profileID, _ := cmd.Flags().GetString("profile-id")

		host, err := admin.AddHost(token, args[0], client.AddHostRequest{
			Hostname:  args[1],
			IPv4:      ipv4,
			IPv6:      ipv6,
			ProfileID: profileID,
		})
		if err != nil {
			return err
		}

		output.Success("Host %s registered (id %s)", host.Hostname, host.ID)
		return nil
	},
}

var tenantAddProducerCmd = &cobra.Command{
	Use:   "add-producer <tenant-id> <name>",
	Short: "Register an event producer under a tenant",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, token, err := adminSession(cmd)
		if err != nil {
			return err
		}

		pattern, _ := cmd.Flags().GetString("pattern")
		durable, _ := cmd.Flags().GetBool("durable")
		encrypted, _ := cmd.Flags().GetBool("encrypted")
		sinks, _ := cmd.Flags().GetStringSlice("sink")

		producer, err := admin.AddProducer(token, args[0], client.AddProducerRequest{
			Name:      args[1],
			Pattern:   pattern,
			Durable:   durable,
			Encrypted: encrypted,
			Sinks:     sinks,
		})
		if err != nil {
			return err
		}

		output.Success("Producer %s registered (id %s)", producer.Name, producer.ID)
		if producer.Durable {
			output.Info("Durable delivery enabled, sinks: %v", producer.Sinks)
		}
		return nil
	},
}

func init() {
	tenantCreateCmd.Flags().String("name", "", "human-readable tenant name")

	tenantAddHostCmd.Flags().String("ipv4", "", "host IPv4 address")
	tenantAddHostCmd.Flags().String("ipv6", "", "host IPv6 address")
	tenantAddHostCmd.Flags().String("profile-id", "", "host profile identifier")

	tenantAddProducerCmd.Flags().String("pattern", "", "normalization pattern (defaults to the producer name)")
	tenantAddProducerCmd.Flags().Bool("durable", false, "require job-tracked delivery")
	tenantAddProducerCmd.Flags().Bool("encrypted", false, "mark the producer's events encrypted")
	tenantAddProducerCmd.Flags().StringSlice("sink", nil, "delivery sink (repeatable)")

	tenantCmd.AddCommand(tenantCreateCmd)
	tenantCmd.AddCommand(tenantListCmd)
	tenantCmd.AddCommand(tenantShowCmd)
	tenantCmd.AddCommand(tenantRotateTokenCmd)
	tenantCmd.AddCommand(tenantAddHostCmd)
	tenantCmd.AddCommand(tenantAddProducerCmd)

	rootCmd.AddCommand(tenantCmd)
}
