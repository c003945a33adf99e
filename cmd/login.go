// ABOUTME: Login command for the cashly CLI
// ABOUTME: Signs in with email and password or through the Google redirect flow

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

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/callback"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/session"
	"github.com/AbdelrhmanAbuelnile/Cashly/internal/tui/styles"
)

// googleLoginTimeout bounds how long we wait for the browser to come back
const googleLoginTimeout = 5 * time.Minute

var (
	loginEmail      string
	loginPassword   string
	loginRememberMe bool
	loginGoogle     bool
)

// promptCredentials asks for whatever the flags did not provide
var promptCredentials = func(creds *session.Credentials) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&creds.Email).
				Validate(session.ValidateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("password is required")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Remember me?").
				Value(&creds.RememberMe),
		).Title("Sign in to Cashly"),
	).WithTheme(styles.FormTheme()).Run()
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Cashly",
	Long: `Sign in with email and password, or with Google.

Missing email or password are prompted for interactively.

Examples:
  cashly login --email you@example.com
  cashly login --google`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runLogin(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginRememberMe, "remember-me", false, "Ask the backend for a long-lived session")
	loginCmd.Flags().BoolVar(&loginGoogle, "google", false, "Sign in with Google in the browser")
}

// runLogin executes the login flow and returns exit code
func runLogin(ctx context.Context, w io.Writer) int {
	a, err := newApp(nil)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer a.Close()

	if loginGoogle {
		return runGoogleLogin(ctx, a, w)
	}

	creds := session.Credentials{
		Email:      loginEmail,
		Password:   loginPassword,
		RememberMe: loginRememberMe,
	}
	if creds.Email == "" || creds.Password == "" {
		if err := promptCredentials(&creds); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return 2
		}
	}

	if err := a.session.Login(ctx, creds); err != nil {
		return authExitCode(w, err)
	}

	fmt.Fprintf(w, "Logged in as %s\n", a.session.Snapshot().User.DisplayName())
	return 0
}

// runGoogleLogin waits for the backend to redirect the browser to a
// loopback listener and adopts the identity it carries
func runGoogleLogin(ctx context.Context, a *app, w io.Writer) int {
	if snap := a.session.Snapshot(); snap.IsAuthenticated {
		fmt.Fprintf(w, "Already logged in as %s. Run `cashly logout` first.\n", snap.User.DisplayName())
		return 0
	}

	l, err := callback.Listen(a.cfg.CallbackAddr)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer l.Close(context.Background())

	fmt.Fprintf(w, "Open this URL in your browser to sign in with Google:\n\n  %s\n\n", a.client.GoogleAuthURL(l.RedirectURL()))
	fmt.Fprintln(w, "Waiting for the browser...")

	waitCtx, cancel := context.WithTimeout(ctx, googleLoginTimeout)
	defer cancel()

	raw, err := l.Wait(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintln(w, "Error: timed out waiting for Google sign-in")
		} else {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
		return 2
	}

	_, adopted, err := a.session.HandleCallback(raw)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	if !adopted {
		fmt.Fprintln(w, "Error: the sign-in response carried no identity")
		return 2
	}

	fmt.Fprintf(w, "Logged in as %s\n", a.session.Snapshot().User.DisplayName())
	return 0
}
