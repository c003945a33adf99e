// ABOUTME: Signup command for the cashly CLI
// ABOUTME: Registers a new account; signing in stays a separate step

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

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/styles"
)

var signupReq client.RegisterRequest

var genderOptions = []huh.Option[string]{
	huh.NewOption("Prefer not to say", ""),
	huh.NewOption("Female", "female"),
	huh.NewOption("Male", "male"),
}

// promptSignup fills the registration fields the flags did not provide
var promptSignup = func(req *client.RegisterRequest) error {
	required := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", field)
			}
			return nil
		}
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("First name").Value(&req.FirstName).Validate(required("first name")),
			huh.NewInput().Title("Last name").Value(&req.LastName),
			huh.NewInput().Title("Email").Placeholder("you@example.com").Value(&req.Email).Validate(session.ValidateEmail),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&req.Password).Validate(required("password")),
		).Title("Create your Cashly account"),
		huh.NewGroup(
			huh.NewInput().Title("Phone").Value(&req.Phone),
			huh.NewSelect[string]().Title("Gender").Options(genderOptions...).Value(&req.Gender),
		).Title("Optional details"),
	).WithTheme(styles.FormTheme()).Run()
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a Cashly account",
	Long: `Register a new Cashly account. Missing details are prompted for.

Example:
  cashly signup --first-name Ada --last-name Lovelace --email ada@example.com`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runSignup(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(signupCmd)
	signupCmd.Flags().StringVar(&signupReq.FirstName, "first-name", "", "First name")
	signupCmd.Flags().StringVar(&signupReq.LastName, "last-name", "", "Last name")
	signupCmd.Flags().StringVar(&signupReq.Email, "email", "", "Account email")
	signupCmd.Flags().StringVar(&signupReq.Password, "password", "", "Account password (prompted when omitted)")
	signupCmd.Flags().StringVar(&signupReq.Phone, "phone", "", "Phone number")
	signupCmd.Flags().StringVar(&signupReq.Gender, "gender", "", "Gender")
}

// runSignup registers the account and returns exit code
func runSignup(ctx context.Context, w io.Writer) int {
	a, err := newApp(nil)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer a.Close()

	req := signupReq
	if req.FirstName == "" || req.Email == "" || req.Password == "" {
		if err := promptSignup(&req); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return 2
		}
	}

	if err := validateSignup(&req); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if _, err := a.client.Register(ctx, &req); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			fmt.Fprintf(w, "Error: %s\n", apiErr.Message)
		} else {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
		return 2
	}

	fmt.Fprintf(w, "Account created for %s. Run `cashly login --email %s` to sign in.\n", req.Email, req.Email)
	return 0
}

// validateSignup trims the request and checks it locally
func validateSignup(req *client.RegisterRequest) error {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.FirstName == "" {
		return fmt.Errorf("%w: first name is required", session.ErrValidation)
	}
	creds := session.Credentials{Email: req.Email, Password: req.Password}
	return creds.Validate()
}
