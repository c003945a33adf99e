// ABOUTME: Status command for the cashly CLI
// ABOUTME: Shows the saved session without contacting the backend

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
)

// expiringWindow is when a saved credential is reported as expiring
const expiringWindow = 10 * time.Minute

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved session",
	Long: `Display the saved session and when it expires. Nothing is sent to the backend;
use whoami to verify the session.

Exit codes:
  0 - A session is saved and has not expired
  1 - No session saved, or it has expired
  2 - Error`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runStatus(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusView is the saved session as status reports it
type statusView struct {
	LoggedIn  bool      `json:"logged_in"`
	User      string    `json:"user,omitempty"`
	Store     string    `json:"store"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Expiry    string    `json:"expiry"`
}

// runStatus reports the saved session and returns exit code
func runStatus(_ context.Context, w io.Writer) int {
	a, err := newApp(nil)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer a.Close()

	v := buildStatusView(a.session.Snapshot(), a.cfg.Store, time.Now())

	if IsJSONOutput() {
		fmt.Fprintln(w, formatStatusJSON(v))
	} else {
		fmt.Fprintln(w, formatStatusHuman(v))
	}

	if !v.LoggedIn || v.Expiry == "expired" {
		return 1
	}
	return 0
}

func buildStatusView(snap session.Snapshot, storeName string, now time.Time) statusView {
	v := statusView{
		LoggedIn:  snap.IsAuthenticated,
		Store:     storeName,
		ExpiresAt: snap.ExpiresAt,
		Expiry:    "unknown",
	}
	if snap.User != nil {
		v.User = snap.User.DisplayName()
	}
	if !snap.ExpiresAt.IsZero() {
		v.Expiry = expiryStatus(snap.ExpiresAt.Sub(now), expiringWindow)
	}
	return v
}

// formatStatusHuman formats the saved session for human readability
func formatStatusHuman(v statusView) string {
	if !v.LoggedIn {
		return fmt.Sprintf("No saved session (%s store).\nRun `cashly login` to sign in.", v.Store)
	}

	expires := "-"
	if !v.ExpiresAt.IsZero() {
		expires = v.ExpiresAt.Local().Format(time.RFC1123)
	}

	return fmt.Sprintf(`User:     %s
Store:    %s
Expires:  %s [%s]`, v.User, v.Store, expires, v.Expiry)
}

// formatStatusJSON formats the saved session as JSON
func formatStatusJSON(v statusView) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}

// expiryStatus returns ok/expiring/expired for the remaining lifetime
func expiryStatus(remaining, window time.Duration) string {
	if remaining <= 0 {
		return "expired"
	}
	if remaining <= window {
		return "expiring"
	}
	return "ok"
}
