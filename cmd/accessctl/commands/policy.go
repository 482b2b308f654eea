package commands

import (
	"fmt"
	"strings"

	"github.com/campuskit/access-api/internal/config"
	"github.com/campuskit/access-api/internal/upload"
	"github.com/spf13/cobra"
)

// NewPolicyCmd creates the policy command.
func NewPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect upload policies",
	}
	cmd.AddCommand(newPolicyListCmd())
	return cmd
}

func newPolicyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List upload folders and their limits",
		Long:  "List the folder policies loaded from UPLOAD_POLICY_PATH, or the built-in defaults.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			policies := upload.DefaultPolicies()
			source := "defaults"
			if cfg.UploadPolicyPath != "" {
				policies, err = upload.LoadPolicies(cfg.UploadPolicyPath)
				if err != nil {
					return fmt.Errorf("load policies: %w", err)
				}
				source = cfg.UploadPolicyPath
			}

			fmt.Printf("Upload policies (%s):\n", source)
			for _, folder := range policies.Folders() {
				policy, _ := policies.ForFolder(folder)
				fmt.Printf("  - Folder: %s\n", folder)
				fmt.Printf("    Max size: %d bytes\n", policy.MaxSizeBytes)
				fmt.Printf("    Extensions: %s\n", strings.Join(policy.Extensions, ", "))
			}
			return nil
		},
	}
}
