// ABOUTME: Interactive terminal UI command
// ABOUTME: Runs the full-screen session UI with logs redirected to the config directory

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/logger"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:     "tui",
	Aliases: []string{"ui"},
	Short:   "Open the interactive session UI",
	Long: `Open the full-screen UI. It restores the saved session, offers password
and Google sign-in, and keeps the session fresh while it is open.

Logs are written to debug.log in the config directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runTUI(ctx, os.Stderr)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// runTUI builds the session stack and runs the UI until the user quits
func runTUI(ctx context.Context, w io.Writer) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	// The UI owns the screen, so logs go to a file
	logFile, err := logger.OpenFile(cfg.ConfigDir)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer logFile.Close()

	router := tui.NewRouter()
	a, err := newApp(logFile, session.WithNavigator(router.Navigate))
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer a.Close()

	if err := tui.Run(ctx, a.session, a.client, router, a.cfg.CallbackAddr); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	return 0
}
