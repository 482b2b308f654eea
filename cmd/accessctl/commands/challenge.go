package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/campuskit/access-api/internal/config"
	"github.com/campuskit/access-api/internal/upload"
	"github.com/spf13/cobra"
)

// NewChallengeCmd creates the challenge command with mint and open subcommands.
func NewChallengeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "challenge",
		Short: "Mint and open upload challenges",
		Long:  "Mint opaque upload challenges or open existing ones using UPLOAD_CHALLENGE_SECRET.",
	}
	cmd.AddCommand(newChallengeMintCmd())
	cmd.AddCommand(newChallengeOpenCmd())
	return cmd
}

func newChallengeCodec() (*upload.ChallengeCodec, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	codec, err := upload.NewChallengeCodec(cfg.UploadChallengeSecret)
	if err != nil {
		return nil, fmt.Errorf("initialize challenge codec: %w", err)
	}
	return codec, nil
}

func newChallengeMintCmd() *cobra.Command {
	var targetPath, contentType string
	var maxSize uint64
	var ttlMinutes int

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint an opaque upload challenge",
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetPath == "" {
				return fmt.Errorf("--path is required")
			}

			codec, err := newChallengeCodec()
			if err != nil {
				return err
			}
			opaque, err := codec.Issue(targetPath, contentType, maxSize, time.Duration(ttlMinutes)*time.Minute)
			if err != nil {
				return fmt.Errorf("issue challenge: %w", err)
			}
			fmt.Println(opaque)
			return nil
		},
	}
	cmd.Flags().StringVar(&targetPath, "path", "", "Target object path (required)")
	cmd.Flags().StringVar(&contentType, "content-type", "application/octet-stream", "Expected content type")
	cmd.Flags().Uint64Var(&maxSize, "max-size", 5*1024*1024, "Maximum object size in bytes")
	cmd.Flags().IntVar(&ttlMinutes, "ttl", 10, "Challenge lifetime in minutes")
	return cmd
}

func newChallengeOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <challenge>",
		Short: "Decrypt and print an upload challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := newChallengeCodec()
			if err != nil {
				return err
			}
			challenge, err := codec.Open(args[0])
			if err != nil {
				return fmt.Errorf("open challenge: %w", err)
			}

			out, err := json.MarshalIndent(challenge, "", "  ")
			if err != nil {
				return fmt.Errorf("encode challenge: %w", err)
			}
			fmt.Println(string(out))
			fmt.Printf("expires: %s\n", time.UnixMilli(challenge.ExpiresAt).UTC().Format(time.RFC3339))
			return nil
		},
	}
}
