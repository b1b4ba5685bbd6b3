package clipsdk

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const (
	// CSRFCookieName is the cookie the backend sets with the current
	// anti-forgery value.
	CSRFCookieName = "csrf_token"

	// CSRFHeaderName is the request header the backend expects the cookie
	// value echoed into on mutating calls. It doubles as the response
	// header the backend rotates the value through.
	CSRFHeaderName = "X-CSRF-Token"
)

// exemptPaths predate session establishment, so no anti-forgery cookie can
// exist for them yet. They must never receive the header.
var exemptPaths = []string{
	"/auth/pin",
	"/auth/signin",
}

// AntiForgery synchronizes the double-submit anti-forgery token between the
// backend's cookie and the request header it expects on mutating calls.
//
// The cookie jar is the source of truth: HeadersFor reads it fresh on every
// call, so the header sent always equals the cookie value at call time. The
// in-memory mirror only covers the gap when the backend announces a rotated
// value via the response header without a matching Set-Cookie.
type AntiForgery struct {
	jar  http.CookieJar
	base *url.URL

	mu     sync.RWMutex
	mirror string
}

// NewAntiForgery creates a synchronizer reading cookies from jar for the
// given backend base URL.
func NewAntiForgery(jar http.CookieJar, baseURL string) *AntiForgery {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}
	return &AntiForgery{jar: jar, base: base}
}

// HeadersFor returns the anti-forgery header for a request, or nil when the
// method is non-mutating, the path is exempt, or no token is known yet.
func (a *AntiForgery) HeadersFor(method, path string) map[string]string {
	if !mutatingMethod(method) || exemptPath(path) {
		return nil
	}

	token := a.cookieValue()
	if token == "" {
		a.mu.RLock()
		token = a.mirror
		a.mu.RUnlock()
	}
	if token == "" {
		return nil
	}

	return map[string]string{CSRFHeaderName: token}
}

// UpdateFromResponse captures a rotated anti-forgery value announced via the
// response header and pushes it into the cookie jar so the next HeadersFor
// call sees it.
func (a *AntiForgery) UpdateFromResponse(resp *http.Response) {
	value := resp.Header.Get(CSRFHeaderName)
	if value == "" {
		return
	}

	a.mu.Lock()
	a.mirror = value
	a.mu.Unlock()

	if a.jar != nil && a.base != nil {
		a.jar.SetCookies(a.base, []*http.Cookie{{
			Name:  CSRFCookieName,
			Value: value,
			Path:  "/",
		}})
	}
}

// cookieValue reads the current anti-forgery cookie, fresh on every call.
func (a *AntiForgery) cookieValue() string {
	if a.jar == nil || a.base == nil {
		return ""
	}
	for _, c := range a.jar.Cookies(a.base) {
		if c.Name == CSRFCookieName {
			return c.Value
		}
	}
	return ""
}

// mutatingMethod reports whether a method requires anti-forgery protection.
func mutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// exemptPath reports whether a request path is exempt from anti-forgery
// protection. Prefix matching covers the PIN status path, which embeds an id.
func exemptPath(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, p := range exemptPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
