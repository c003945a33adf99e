// ABOUTME: Root command for the cashly CLI
// ABOUTME: Handles global flags and resolves configuration from flags, env and defaults

package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/config"
)

var (
	apiURL     string
	jsonOutput bool
	configDir  string
	storeKind  string
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "cashly",
	Short: "Terminal client for Cashly",
	Long: `cashly is a terminal client for the Cashly personal finance service.

It signs you in, keeps your session alive and shows your profile and balance.

Environment Variables:
  CASHLY_API_URL           Backend API URL (default: http://localhost:7000/api/v1)
  CASHLY_CONFIG_DIR        Where the session and debug log live (default: ~/.config/cashly)
  CASHLY_STORE             Session store: file, redis or memory (default: file)
  CASHLY_REDIS_URL         Redis URL when CASHLY_STORE=redis
  CASHLY_REFRESH_INTERVAL  Silent refresh interval (default: 10m)
  CASHLY_CALLBACK_ADDR     Loopback address for Google sign-in (default: 127.0.0.1:7777)
  LOG_LEVEL, LOG_FORMAT    Logging (default: info, text)

Exit codes:
  0 - Success
  1 - Not logged in or authentication rejected
  2 - Error (connectivity, invalid input, configuration)`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides CASHLY_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (overrides CASHLY_CONFIG_DIR)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "Session store: file, redis or memory (overrides CASHLY_STORE)")
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if envURL := os.Getenv("CASHLY_API_URL"); envURL != "" {
		return envURL
	}
	return config.DefaultAPIURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig reads the environment and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	cfg.APIURL = config.NormalizeURL(GetAPIURL())
	if configDir != "" {
		cfg.ConfigDir = configDir
	}
	if storeKind != "" {
		cfg.Store = strings.ToLower(strings.TrimSpace(storeKind))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
