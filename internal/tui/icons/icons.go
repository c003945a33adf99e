// ABOUTME: Icon system with Nerd Font detection and Unicode fallback
// ABOUTME: Provides consistent iconography across different terminal capabilities

package icons

import (
	"os"
	"strings"
	"sync"
)

var (
	useNerdFonts     bool
	nerdFontDetected sync.Once
)

// detectNerdFonts checks if Nerd Fonts should be used
func detectNerdFonts() bool {
	// Explicit override via environment variable
	if env := os.Getenv("CASHLY_NERD_FONTS"); env != "" {
		return env == "1" || strings.ToLower(env) == "true"
	}

	// Check for terminals known to commonly have Nerd Fonts
	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	// iTerm2, Alacritty, WezTerm, Kitty typically have Nerd Fonts
	nerdFontTerminals := []string{
		"iTerm.app",
		"alacritty",
		"WezTerm",
		"kitty",
		"ghostty",
	}

	for _, t := range nerdFontTerminals {
		if strings.Contains(termProgram, t) || strings.Contains(term, strings.ToLower(t)) {
			return true
		}
	}

	// Check for common Nerd Font environment indicators
	if os.Getenv("NERD_FONTS") == "1" {
		return true
	}

	// Default to Unicode fallback for maximum compatibility
	return false
}

// HasNerdFonts returns true if Nerd Fonts are available
func HasNerdFonts() bool {
	nerdFontDetected.Do(func() {
		useNerdFonts = detectNerdFonts()
	})
	return useNerdFonts
}

// Icon represents an icon with Nerd Font and Unicode fallback variants
type Icon struct {
	NerdFont string
	Fallback string
}

// String returns the appropriate icon based on font availability
func (i Icon) String() string {
	if HasNerdFonts() {
		return i.NerdFont
	}
	return i.Fallback
}

// Icon definitions - Nerd Font codepoints with Unicode fallbacks
var (
	// Money
	Wallet   = Icon{"\U000f0584", "◆"} // nf-md-wallet
	Salary   = Icon{"\U000f0114", "●"} // nf-md-cash
	Calendar = Icon{"\U000f00ed", "■"} // nf-md-calendar

	// Identity
	User   = Icon{"\uf415", "☺"} // nf-oct-person
	Google = Icon{"\uf1a0", "G"} // nf-fa-google
	Lock   = Icon{"\uf456", "▣"} // nf-oct-lock

	// Status indicators
	CheckOK  = Icon{"\uf058", "✓"} // nf-fa-check_circle
	Warning  = Icon{"\uf421", "⚠"} // nf-oct-alert
	Critical = Icon{"\uf530", "✗"} // nf-oct-x_circle
	Info     = Icon{"\uf449", "ℹ"} // nf-oct-info
	Clock    = Icon{"\U000f0954", "◷"} // nf-md-clock_outline

	// Actions
	Refresh = Icon{"\U000f0450", "↻"} // nf-md-refresh
	Logout  = Icon{"\U000f0343", "⇥"} // nf-md-logout
	Quit    = Icon{"\U000f05fc", "×"} // nf-md-exit_to_app

	// Application
	App      = Icon{"\U000f0115", "◈"} // nf-md-cash_multiple
	Settings = Icon{"\U000f0493", "⚙"} // nf-md-cog
)
