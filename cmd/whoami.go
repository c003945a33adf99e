// ABOUTME: Whoami command for the cashly CLI
// ABOUTME: Verifies the saved session with the backend and prints the profile

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/money"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long: `Verify the saved session with the backend and show the signed-in user.

When the backend cannot be reached the saved profile is shown instead.

Exit codes:
  0 - Signed in
  1 - Not signed in, or the backend rejected the session
  2 - Error`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runWhoami(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

// whoamiView is what whoami reports
type whoamiView struct {
	User      *client.Profile `json:"user"`
	Phase     session.Phase   `json:"phase"`
	Verified  bool            `json:"verified"`
	ExpiresAt time.Time       `json:"expiresAt,omitzero"`
}

// runWhoami executes the whoami check and returns exit code
func runWhoami(ctx context.Context, w io.Writer) int {
	a, err := newApp(nil)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer a.Close()

	err = a.session.Bootstrap(ctx)
	snap := a.session.Snapshot()
	if errors.Is(err, session.ErrAuthRejected) {
		fmt.Fprintln(w, "Session expired. Run `cashly login` again.")
		return 1
	}
	if !snap.IsAuthenticated {
		fmt.Fprintln(w, "Not logged in. Run `cashly login` first.")
		return 1
	}

	view := whoamiView{
		User:      snap.User,
		Phase:     snap.Phase,
		Verified:  err == nil,
		ExpiresAt: snap.ExpiresAt,
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatWhoamiJSON(view))
	} else {
		fmt.Fprintln(w, formatWhoamiHuman(view, time.Now()))
	}
	return 0
}

// formatWhoamiHuman formats the profile for human readability
func formatWhoamiHuman(v whoamiView, now time.Time) string {
	u := v.User
	var sb strings.Builder

	name := u.DisplayName()
	if u.Email != "" && u.Email != name {
		name += " <" + u.Email + ">"
	}
	fmt.Fprintf(&sb, "User:     %s\n", name)
	fmt.Fprintf(&sb, "Balance:  %s\n", money.FormatPtr(u.Balance, u.Currency, u.CurrencySymbol, "-"))
	fmt.Fprintf(&sb, "Salary:   %s\n", money.FormatPtr(u.Salary, u.Currency, u.CurrencySymbol, "-"))
	if u.PaymentDay > 0 {
		fmt.Fprintf(&sb, "Payday:   %d\n", u.PaymentDay)
	}

	state := v.Phase.String()
	if !v.ExpiresAt.IsZero() {
		state += ", " + formatRemaining(v.ExpiresAt.Sub(now))
	}
	fmt.Fprintf(&sb, "Session:  %s", state)

	if !v.Verified {
		sb.WriteString("\n\nNote: the backend could not be reached, showing the saved session.")
	}
	return sb.String()
}

// formatWhoamiJSON formats the profile as JSON
func formatWhoamiJSON(v whoamiView) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}

// formatRemaining describes how long a credential stays valid
func formatRemaining(d time.Duration) string {
	switch {
	case d <= 0:
		return "expired"
	case d < time.Minute:
		return "expires in <1m"
	case d < time.Hour:
		return fmt.Sprintf("expires in %dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("expires in %dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
