// ABOUTME: Health command for the cashly CLI
// ABOUTME: Checks backend connectivity and session store availability

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend connectivity",
	Long:  `Check connectivity to the Cashly backend and the configured session store.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runHealth(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// pinger is implemented by stores with a remote server behind them
type pinger interface {
	Ping(ctx context.Context) error
}

// healthReport is the outcome of the connectivity checks
type healthReport struct {
	Backend        string `json:"backend"`
	BackendOK      bool   `json:"backend_ok"`
	BackendStatus  int    `json:"backend_status,omitempty"`
	BackendError   string `json:"backend_error,omitempty"`
	Store          string `json:"store"`
	StoreOK        bool   `json:"store_ok"`
	StoreError     string `json:"store_error,omitempty"`
	SessionPresent bool   `json:"session_present"`
}

// runHealth executes the health check and returns exit code
func runHealth(ctx context.Context, w io.Writer) int {
	a, err := newApp(nil)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer a.Close()

	report := healthReport{
		Backend:        a.cfg.APIURL,
		Store:          a.cfg.Store,
		StoreOK:        true,
		SessionPresent: a.session.Snapshot().IsAuthenticated,
	}

	// Any HTTP answer, even 401, means the backend is up
	_, err = a.client.Profile(ctx)
	var apiErr *client.APIError
	switch {
	case err == nil:
		report.BackendOK = true
		report.BackendStatus = 200
	case errors.As(err, &apiErr):
		report.BackendOK = apiErr.StatusCode < 500
		report.BackendStatus = apiErr.StatusCode
	default:
		report.BackendError = err.Error()
	}

	if p, ok := a.store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			report.StoreOK = false
			report.StoreError = err.Error()
		}
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatHealthJSON(report))
	} else {
		fmt.Fprintln(w, formatHealthHuman(report))
	}

	if !report.BackendOK || !report.StoreOK {
		return 2
	}
	return 0
}

// formatHealthHuman formats the health report for human readability
func formatHealthHuman(r healthReport) string {
	backend := "ok"
	switch {
	case r.BackendError != "":
		backend = "unreachable: " + r.BackendError
	case !r.BackendOK:
		backend = fmt.Sprintf("failing (status %d)", r.BackendStatus)
	}

	st := "ok"
	if !r.StoreOK {
		st = "unavailable: " + r.StoreError
	}

	return fmt.Sprintf(`Backend:  %s
Status:   %s
Store:    %s (%s)
Session:  %t`, r.Backend, backend, r.Store, st, r.SessionPresent)
}

// formatHealthJSON formats the health report as JSON
func formatHealthJSON(r healthReport) string {
	data, _ := json.MarshalIndent(r, "", "  ")
	return string(data)
}
