package portal

import (
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/net/publicsuffix"
)

// userAgentTransport sets the User-Agent header on all requests.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

// NewSession returns a http client that keeps cookies across requests and
// sends userAgent. The client is shared by all portal and probe requests of
// the process, so cookies set by the portal survive until the login.
func NewSession(userAgent string) *http.Client {
	// cookiejar.New never returns an error
	jar, _ := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	return &http.Client{
		Jar: jar,
		Transport: &userAgentTransport{
			base:      http.DefaultTransport.(*http.Transport).Clone(),
			userAgent: userAgent,
		},
	}
}
