// ABOUTME: Request and response models for the Cashly API
// ABOUTME: Defines the user profile, auth payloads, and persisted credential

package client

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Profile represents the authenticated user as returned by the backend
type Profile struct {
	ID             string           `json:"id,omitempty"`
	Name           string           `json:"name,omitempty"`
	FullName       string           `json:"fullName,omitempty"`
	FirstName      string           `json:"firstName,omitempty"`
	LastName       string           `json:"lastName,omitempty"`
	Email          string           `json:"email,omitempty"`
	Picture        string           `json:"picture,omitempty"`
	GoogleID       string           `json:"googleId,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	CurrencySymbol string           `json:"currencySymbol,omitempty"`
	Balance        *decimal.Decimal `json:"balance,omitempty"`
	Salary         *decimal.Decimal `json:"salary,omitempty"`
	PaymentDay     int              `json:"paymentDay,omitempty"`
}

// UnmarshalJSON also accepts the document id under "_id"
func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Profile(aux.plain)
	if p.ID == "" {
		p.ID = aux.MongoID
	}
	return nil
}

// DisplayName returns the best available human-readable name
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	switch {
	case p.Name != "":
		return p.Name
	case p.FullName != "":
		return p.FullName
	case p.FirstName != "" || p.LastName != "":
		return strings.TrimSpace(p.FirstName + " " + p.LastName)
	default:
		return p.Email
	}
}

// Merge returns a copy of p with every field that is set in update applied
func (p Profile) Merge(update *Profile) Profile {
	if update == nil {
		return p
	}
	mergeString(&p.ID, update.ID)
	mergeString(&p.Name, update.Name)
	mergeString(&p.FullName, update.FullName)
	mergeString(&p.FirstName, update.FirstName)
	mergeString(&p.LastName, update.LastName)
	mergeString(&p.Email, update.Email)
	mergeString(&p.Picture, update.Picture)
	mergeString(&p.GoogleID, update.GoogleID)
	mergeString(&p.Currency, update.Currency)
	mergeString(&p.CurrencySymbol, update.CurrencySymbol)
	if update.Balance != nil {
		p.Balance = update.Balance
	}
	if update.Salary != nil {
		p.Salary = update.Salary
	}
	if update.PaymentDay != 0 {
		p.PaymentDay = update.PaymentDay
	}
	return p
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// LoginRequest represents credentials for POST /auth/login
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// RegisterRequest represents the signup payload for POST /auth/register
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Gender    string `json:"gender"`
}

// SettingsRequest represents the payload for POST /user/settings
type SettingsRequest struct {
	Currency       string           `json:"currency"`
	CurrencySymbol string           `json:"currencySymbol"`
	FirstName      string           `json:"firstName,omitempty"`
	LastName       string           `json:"lastName"`
	PaymentDay     int              `json:"paymentDay,omitempty"`
	Picture        string           `json:"picture,omitempty"`
	Salary         *decimal.Decimal `json:"salary,omitempty"`
	Balance        *decimal.Decimal `json:"balance,omitempty"`
}

// ErrorResponse represents an API error body
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Cookie is the persisted form of a backend session cookie
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Path   string `json:"path,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// Credential is everything the client needs to resume an authenticated session
type Credential struct {
	Cookies   []Cookie  `json:"cookies,omitempty"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// IsZero reports whether the credential carries nothing
func (c Credential) IsZero() bool {
	return len(c.Cookies) == 0 && c.Token == ""
}
