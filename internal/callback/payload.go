// ABOUTME: Parsing of the identity-provider redirect payload
// ABOUTME: Decodes the user query parameter and strips it from the URL

package callback

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/AbdelrhmanAbuelnile/Cashly/internal/client"
)

// ParamUser is the query parameter carrying the payload
const ParamUser = "user"

// ErrMalformedPayload is returned for payloads that cannot be adopted
var ErrMalformedPayload = errors.New("malformed callback payload")

// Payload is the JSON document the backend appends to the redirect
type Payload struct {
	User  *client.Profile `json:"user"`
	Token string          `json:"token"`
}

// ParsePayload decodes a raw parameter value. Values that are still
// percent-encoded are decoded once more.
func ParsePayload(raw string) (*Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedPayload)
	}
	if !strings.HasPrefix(raw, "{") {
		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		raw = decoded
	}

	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if p.User == nil || (p.User.ID == "" && p.User.Email == "") {
		return nil, fmt.Errorf("%w: missing user", ErrMalformedPayload)
	}
	return &p, nil
}

// FromURL returns the payload parameter of rawURL, if present
func FromURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	q := u.Query()
	if !q.Has(ParamUser) {
		return "", false
	}
	return q.Get(ParamUser), true
}

// StripParam returns rawURL without the named query parameter. Unparseable
// input is returned unchanged.
func StripParam(rawURL, name string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if !q.Has(name) {
		return rawURL
	}
	q.Del(name)
	u.RawQuery = q.Encode()
	return u.String()
}
