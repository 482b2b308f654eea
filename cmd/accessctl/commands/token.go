package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/campuskit/access-api/internal/config"
	"github.com/campuskit/access-api/internal/models"
	"github.com/campuskit/access-api/internal/token"
	"github.com/campuskit/access-api/internal/validation"
	"github.com/spf13/cobra"
)

// NewTokenCmd creates the token command with mint and decode subcommands.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint and decode access tokens",
		Long:  "Mint signed compact access tokens or decode existing ones using ACCESS_TOKEN_SECRET.",
	}
	cmd.AddCommand(newTokenMintCmd())
	cmd.AddCommand(newTokenDecodeCmd())
	return cmd
}

func newSigner() (*token.Signer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return token.NewSigner(cfg.AccessTokenSecret, token.NewCodec(nil)), nil
}

func newTokenMintCmd() *cobra.Command {
	var subject, email, name, userType string
	var orgs, institutes, linkedStudents []string
	var globalAdmin bool
	var ttlMinutes int

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a signed access token",
		Long:  "Mint a signed access token. Organization memberships use the wire form: role letter followed by the organization id (e.g. 'P42' for PRESIDENT of organization 42).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			if userType != "" {
				if err := validation.ValidateUserType(userType); err != nil {
					return err
				}
			}

			claims := &models.AccessClaims{
				SubjectID:        subject,
				Email:            email,
				DisplayName:      validation.SanitizeText(name),
				UserType:         models.UserType(userType),
				IsGlobalAdmin:    globalAdmin,
				InstituteIDs:     institutes,
				LinkedStudentIDs: linkedStudents,
			}
			for _, entry := range orgs {
				if len(entry) < 2 {
					return fmt.Errorf("invalid membership %q: expected role letter followed by organization id", entry)
				}
				role, ok := models.RoleFromLetter(entry[0])
				if !ok {
					return fmt.Errorf("invalid membership %q: unknown role letter %q", entry, string(entry[0]))
				}
				claims.OrganizationMemberships = append(claims.OrganizationMemberships, models.OrganizationMembership{
					OrganizationID: entry[1:],
					Role:           role,
				})
			}

			signer, err := newSigner()
			if err != nil {
				return err
			}
			minted, err := signer.Mint(claims, time.Duration(ttlMinutes)*time.Minute)
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}
			fmt.Println(minted)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Subject id (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&userType, "user-type", "", "User type (e.g. STUDENT, TEACHER, ORGANIZATION_MANAGER)")
	cmd.Flags().StringSliceVar(&orgs, "org", nil, "Organization membership as role letter + organization id (repeatable)")
	cmd.Flags().StringSliceVar(&institutes, "institute", nil, "Institute id (repeatable)")
	cmd.Flags().StringSliceVar(&linkedStudents, "linked-student", nil, "Linked student id for parents (repeatable)")
	cmd.Flags().BoolVar(&globalAdmin, "global-admin", false, "Grant global admin")
	cmd.Flags().IntVar(&ttlMinutes, "ttl", 720, "Token lifetime in minutes (0 for no expiry)")
	return cmd
}

func newTokenDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Verify and decode an access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := newSigner()
			if err != nil {
				return err
			}
			claims, err := signer.Parse(args[0])
			if err != nil {
				return fmt.Errorf("decode token (%s): %w", token.CodeOf(err), err)
			}

			out, err := json.MarshalIndent(claims, "", "  ")
			if err != nil {
				return fmt.Errorf("encode claims: %w", err)
			}
			fmt.Fprintln(os.Stdout, string(out))
			return nil
		},
	}
}
