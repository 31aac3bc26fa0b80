package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type refreshFlags struct {
	addr    string
	token   string
	timeout time.Duration
}

var refreshOpts refreshFlags

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Trigger a refresh on a running daemon",
	Long: `Trigger one refresh cycle via the daemon's HTTP API and print the
result. The API token is taken from --token or PARKING_API_TOKEN.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		token := refreshOpts.token
		if token == "" {
			token = os.Getenv("PARKING_API_TOKEN")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), refreshOpts.timeout)
		defer cancel()

		url := strings.TrimRight(refreshOpts.addr, "/") + "/api/v1/refresh"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("refresh request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}

		// Pretty-print when the daemon answered JSON.
		var pretty json.RawMessage
		if json.Unmarshal(body, &pretty) == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(out))
		} else {
			fmt.Println(strings.TrimSpace(string(body)))
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return nil
		case http.StatusConflict:
			return fmt.Errorf("refresh already in progress")
		case http.StatusUnauthorized:
			return fmt.Errorf("unauthorized: set --token or PARKING_API_TOKEN")
		default:
			return fmt.Errorf("refresh failed: %s", resp.Status)
		}
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().StringVarP(&refreshOpts.addr, "addr", "a", "http://localhost:8080", "daemon base URL")
	refreshCmd.Flags().StringVarP(&refreshOpts.token, "token", "t", "", "API token (defaults to PARKING_API_TOKEN)")
	refreshCmd.Flags().DurationVar(&refreshOpts.timeout, "timeout", 2*time.Minute, "request timeout")
}
