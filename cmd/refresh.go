// ABOUTME: Refresh command for the cashly CLI
// ABOUTME: Renews the saved session once, logging out when the backend refuses it

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the saved session",
	Long: `Ask the backend to renew the saved session.

Exit codes:
  0 - Session renewed
  1 - Not signed in, or the backend rejected the session (you are now logged out)
  2 - Backend unreachable or failing (the session is kept)`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runRefresh(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

// runRefresh performs one refresh and returns exit code
func runRefresh(ctx context.Context, w io.Writer) int {
	a, err := newApp(nil)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer a.Close()

	// Reconcile the saved session first; an unreachable backend is reported by the refresh itself
	if err := a.session.Bootstrap(ctx); errors.Is(err, session.ErrAuthRejected) {
		fmt.Fprintln(w, "Session rejected by the backend. You have been logged out.")
		return 1
	}

	if _, err := a.session.RefreshToken(ctx); err != nil {
		if errors.Is(err, session.ErrAuthRejected) {
			fmt.Fprintln(w, "Session rejected by the backend. You have been logged out.")
			return 1
		}
		if errors.Is(err, session.ErrTransient) {
			fmt.Fprintf(w, "Error: %v\nThe saved session was kept.\n", err)
			return 2
		}
		return authExitCode(w, err)
	}

	snap := a.session.Snapshot()
	fmt.Fprintf(w, "Session refreshed for %s (%s)\n", snap.User.DisplayName(), formatRemaining(time.Until(snap.ExpiresAt)))
	return 0
}
