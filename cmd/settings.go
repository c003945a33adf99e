// ABOUTME: Settings command for the cashly CLI
// ABOUTME: Updates currency, names, payday and amounts, then refreshes the session

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/money"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
)

var (
	settingsCurrency       string
	settingsCurrencySymbol string
	settingsFirstName      string
	settingsLastName       string
	settingsPaymentDay     int
	settingsSalary         string
	settingsBalance        string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Update profile settings",
	Long: `Update your currency, name, payday, salary or balance.

Only the flags you pass are changed.

Example:
  cashly settings --currency EUR --salary 4200 --payment-day 25`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runSettings(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.Flags().StringVar(&settingsCurrency, "currency", "", "ISO 4217 currency code, e.g. EUR")
	settingsCmd.Flags().StringVar(&settingsCurrencySymbol, "currency-symbol", "", "Currency symbol (derived from --currency when omitted)")
	settingsCmd.Flags().StringVar(&settingsFirstName, "first-name", "", "First name")
	settingsCmd.Flags().StringVar(&settingsLastName, "last-name", "", "Last name")
	settingsCmd.Flags().IntVar(&settingsPaymentDay, "payment-day", 0, "Day of the month salary arrives (1-31)")
	settingsCmd.Flags().StringVar(&settingsSalary, "salary", "", "Monthly salary")
	settingsCmd.Flags().StringVar(&settingsBalance, "balance", "", "Current balance")
}

// runSettings saves the settings and returns exit code
func runSettings(ctx context.Context, w io.Writer) int {
	a, err := newApp(nil)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer a.Close()

	if err := a.session.Bootstrap(ctx); errors.Is(err, session.ErrAuthRejected) {
		fmt.Fprintln(w, "Session rejected by the backend. You have been logged out.")
		return 1
	}

	snap := a.session.Snapshot()
	if !snap.IsAuthenticated || snap.User == nil {
		return authExitCode(w, session.ErrNotAuthenticated)
	}
	current := *snap.User

	req, err := buildSettingsRequest(current)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	updated, err := a.client.UpdateSettings(ctx, req)
	if err != nil {
		if client.IsAuthRejected(err) {
			if lerr := a.session.Logout(ctx); lerr != nil {
				fmt.Fprintf(w, "Error: %v\n", lerr)
			}
			fmt.Fprintln(w, "Session rejected by the backend. You have been logged out.")
			return 1
		}
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	merged := current.Merge(updated)
	if err := a.session.UpdateUser(merged); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	// Pull the server's view of the profile; failures keep the local update
	if _, err := a.session.RefreshToken(ctx); err != nil {
		if errors.Is(err, session.ErrAuthRejected) {
			fmt.Fprintln(w, "Settings saved, but the session was rejected. You have been logged out.")
			return 1
		}
	}

	fmt.Fprintln(w, formatSettingsHuman(a.session.Snapshot().User))
	return 0
}

// buildSettingsRequest starts from the current profile and applies the flags.
// The backend replaces every field it receives, so unset flags keep their
// current values.
func buildSettingsRequest(current client.Profile) (*client.SettingsRequest, error) {
	req := &client.SettingsRequest{
		Currency:       current.Currency,
		CurrencySymbol: current.CurrencySymbol,
		FirstName:      current.FirstName,
		LastName:       current.LastName,
		PaymentDay:     current.PaymentDay,
		Picture:        current.Picture,
		Salary:         current.Salary,
		Balance:        current.Balance,
	}

	if code := strings.ToUpper(strings.TrimSpace(settingsCurrency)); code != "" {
		req.Currency = code
		req.CurrencySymbol = money.Symbol(code)
	}
	if settingsCurrencySymbol != "" {
		req.CurrencySymbol = settingsCurrencySymbol
	}
	if settingsFirstName != "" {
		req.FirstName = strings.TrimSpace(settingsFirstName)
	}
	if settingsLastName != "" {
		req.LastName = strings.TrimSpace(settingsLastName)
	}
	if settingsPaymentDay != 0 {
		if settingsPaymentDay < 1 || settingsPaymentDay > 31 {
			return nil, fmt.Errorf("%w: payment day must be between 1 and 31", session.ErrValidation)
		}
		req.PaymentDay = settingsPaymentDay
	}

	var err error
	if req.Salary, err = parseAmount("salary", settingsSalary, req.Salary); err != nil {
		return nil, err
	}
	if req.Balance, err = parseAmount("balance", settingsBalance, req.Balance); err != nil {
		return nil, err
	}

	if req.Currency == "" {
		req.Currency = money.DefaultCurrency
	}
	if req.CurrencySymbol == "" {
		req.CurrencySymbol = money.Symbol(req.Currency)
	}
	return req, nil
}

// parseAmount parses a decimal flag, returning fallback when it is unset
func parseAmount(name, raw string, fallback *decimal.Decimal) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number, got %q", session.ErrValidation, name, raw)
	}
	return &d, nil
}

// formatSettingsHuman summarizes the saved settings
func formatSettingsHuman(u *client.Profile) string {
	if u == nil {
		return "Settings saved"
	}
	symbol := u.CurrencySymbol
	if symbol == "" {
		symbol = money.Symbol(u.Currency)
	}
	return fmt.Sprintf(`Settings saved
Name:      %s
Currency:  %s (%s)
Balance:   %s
Salary:    %s
Payday:    %d`,
		u.DisplayName(),
		u.Currency, symbol,
		money.FormatPtr(u.Balance, u.Currency, u.CurrencySymbol, "-"),
		money.FormatPtr(u.Salary, u.Currency, u.CurrencySymbol, "-"),
		u.PaymentDay)
}
