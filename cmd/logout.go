// ABOUTME: Logout command for the cashly CLI
// ABOUTME: Ends the session on the backend and removes the persisted session

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	Long: `Sign out of Cashly. The saved session is removed even when the backend
cannot be reached.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runLogout(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

// runLogout executes the logout flow and returns exit code
func runLogout(ctx context.Context, w io.Writer) int {
	a, err := newApp(nil)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer a.Close()

	wasAuthenticated := a.session.Snapshot().IsAuthenticated
	if err := a.session.Logout(ctx); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if wasAuthenticated {
		fmt.Fprintln(w, "Logged out")
	} else {
		fmt.Fprintln(w, "Not logged in")
	}
	return 0
}
