package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeecm/parking/internal/ura"
)

type tokenFlags struct {
	accessKey string
	baseURL   string
	timeout   time.Duration
}

var tokenOpts tokenFlags

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Fetch a URA daily API token",
	Long: `Fetch the daily token for the URA Data Service. The access key is
taken from --access-key or PARKING_URA_ACCESS_KEY. Tokens roll over at
midnight Singapore time.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key := tokenOpts.accessKey
		if key == "" {
			key = os.Getenv("PARKING_URA_ACCESS_KEY")
		}
		if key == "" {
			return fmt.Errorf("no access key: set --access-key or PARKING_URA_ACCESS_KEY")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), tokenOpts.timeout)
		defer cancel()

		client := ura.New(tokenOpts.baseURL, key, ura.Options{Timeout: tokenOpts.timeout})
		token, err := client.Token(ctx)
		if err != nil {
			return fmt.Errorf("token request failed: %w", err)
		}

		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVarP(&tokenOpts.accessKey, "access-key", "k", "", "URA access key (defaults to PARKING_URA_ACCESS_KEY)")
	tokenCmd.Flags().StringVar(&tokenOpts.baseURL, "base-url", "https://www.ura.gov.sg", "URA Data Service base URL")
	tokenCmd.Flags().DurationVar(&tokenOpts.timeout, "timeout", 30*time.Second, "request timeout")
}
