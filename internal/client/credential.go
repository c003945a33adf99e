// ABOUTME: Export and import of the client's session credential
// ABOUTME: Bridges the cookie jar and bearer token to the persisted session record

package client

import (
	"cmp"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"
)

// scopedJar wraps a cookie jar and remembers the path and domain each cookie
// was set with, since a jar only hands back names and values
type scopedJar struct {
	http.CookieJar

	mu     sync.Mutex
	scopes map[cookieKey]struct{}
}

type cookieKey struct {
	name   string
	path   string
	domain string
}

func newScopedJar(jar http.CookieJar) *scopedJar {
	if sj, ok := jar.(*scopedJar); ok {
		return sj
	}
	return &scopedJar{CookieJar: jar, scopes: make(map[cookieKey]struct{})}
}

// SetCookies implements http.CookieJar
func (j *scopedJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	now := time.Now()
	j.mu.Lock()
	for _, ck := range cookies {
		path := ck.Path
		if path == "" || path[0] != '/' {
			path = defaultCookiePath(u.Path)
		}
		key := cookieKey{
			name:   ck.Name,
			path:   path,
			domain: strings.ToLower(strings.TrimPrefix(ck.Domain, ".")),
		}
		if ck.MaxAge < 0 || (!ck.Expires.IsZero() && !ck.Expires.After(now)) {
			delete(j.scopes, key)
			continue
		}
		j.scopes[key] = struct{}{}
	}
	j.mu.Unlock()

	j.CookieJar.SetCookies(u, cookies)
}

func (j *scopedJar) list() []cookieKey {
	j.mu.Lock()
	defer j.mu.Unlock()
	keys := make([]cookieKey, 0, len(j.scopes))
	for k := range j.scopes {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b cookieKey) int {
		return cmp.Or(cmp.Compare(a.path, b.path), cmp.Compare(a.name, b.name), cmp.Compare(a.domain, b.domain))
	})
	return keys
}

func (j *scopedJar) forget() {
	j.mu.Lock()
	clear(j.scopes)
	j.mu.Unlock()
}

// defaultCookiePath is the RFC 6265 default-path of a request path
func defaultCookiePath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

// Token returns the bearer token, if any
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Credential snapshots the cookies held for the backend and the bearer token
func (c *Client) Credential() Credential {
	c.mu.RLock()
	cred := Credential{Token: c.token, ExpiresAt: c.expiresAt}
	c.mu.RUnlock()

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return cred
	}
	for _, key := range c.jar.list() {
		at := *u
		at.Path = key.path
		// The jar lists the longest path first, so the first hit is this scope
		for _, ck := range c.jar.Cookies(&at) {
			if ck.Name == key.name {
				cred.Cookies = append(cred.Cookies, Cookie{Name: ck.Name, Value: ck.Value, Path: key.path, Domain: key.domain})
				break
			}
		}
	}
	return cred
}

// SetCredential installs a previously persisted credential. Cookies saved
// without a path are scoped to the whole host.
func (c *Client) SetCredential(cred Credential) {
	c.mu.Lock()
	c.token = cred.Token
	c.expiresAt = cred.ExpiresAt
	c.mu.Unlock()

	if len(cred.Cookies) == 0 {
		return
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return
	}
	cookies := make([]*http.Cookie, 0, len(cred.Cookies))
	for _, ck := range cred.Cookies {
		path := ck.Path
		if path == "" {
			path = "/"
		}
		cookies = append(cookies, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: path, Domain: ck.Domain})
	}
	c.jar.SetCookies(u, cookies)
}

// ClearCredential drops the bearer token and expires every backend cookie
// under the path and domain it was set with
func (c *Client) ClearCredential() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return
	}
	keys := c.jar.list()
	if len(keys) == 0 {
		return
	}
	expired := make([]*http.Cookie, 0, len(keys))
	for _, key := range keys {
		expired = append(expired, &http.Cookie{Name: key.name, Path: key.path, Domain: key.domain, MaxAge: -1})
	}
	c.jar.SetCookies(u, expired)
	c.jar.forget()
}
