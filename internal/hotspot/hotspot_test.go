package hotspot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
	"github.com/telekom-mms/hotspot-login/internal/hsconfig"
	"github.com/telekom-mms/hotspot-login/internal/netinfo"
	"github.com/telekom-mms/hotspot-login/internal/portal"
	"github.com/telekom-mms/hotspot-login/internal/prober"
)

// testProber returns verdicts in order, the last one repeatedly.
type testProber struct {
	verdicts []prober.Verdict
	probes   int
}

func (p *testProber) Probe(context.Context) *prober.Result {
	i := p.probes
	if i >= len(p.verdicts) {
		i = len(p.verdicts) - 1
	}
	p.probes++
	return &prober.Result{Verdict: p.verdicts[i]}
}

// testSubmitter records submissions and returns err.
type testSubmitter struct {
	err     error
	submits int
	url     string
	creds   *portal.Credentials
	timeout time.Duration
}

func (s *testSubmitter) Submit(_ context.Context, portalURL string, creds *portal.Credentials, timeout time.Duration) error {
	s.submits++
	s.url = portalURL
	s.creds = creds
	s.timeout = timeout
	return s.err
}

// testConfig returns a config with credentials.
func testConfig() *hsconfig.Config {
	c := hsconfig.NewConfig()
	c.HotspotURL = "http://portal.example.com/"
	c.Username = "alice"
	c.Password = "secret"
	return c
}

// TestServiceLogin tests Login of Service.
func TestServiceLogin(t *testing.T) {
	p := &testProber{verdicts: []prober.Verdict{prober.Connected}}
	sub := &testSubmitter{}
	s := NewService(testConfig(), p, sub, log.StandardLogger())

	if err := s.Login(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sub.submits != 1 || p.probes != 1 {
		t.Errorf("got %d submits and %d probes", sub.submits, p.probes)
	}
	if sub.url != "http://portal.example.com/" ||
		sub.timeout != 10*time.Second {
		t.Errorf("unexpected submission: %s, %v", sub.url, sub.timeout)
	}
	want := &portal.Credentials{Username: "alice", Password: "secret"}
	if !cmp.Equal(sub.creds, want) {
		t.Errorf("got %v, want %v", sub.creds, want)
	}
	if !s.AttemptLogin(context.Background()) {
		t.Error("login should succeed")
	}
}

// TestServiceLoginNoCredentials tests Login of Service without credentials.
func TestServiceLoginNoCredentials(t *testing.T) {
	for _, c := range []*hsconfig.Config{
		{Username: "alice"},
		{Password: "secret"},
		{},
	} {
		p := &testProber{verdicts: []prober.Verdict{prober.Connected}}
		sub := &testSubmitter{}
		s := NewService(c, p, sub, log.StandardLogger())

		if err := s.Login(context.Background()); !errors.Is(err, ErrNoCredentials) {
			t.Errorf("got %v, want %v", err, ErrNoCredentials)
		}
		if s.AttemptLogin(context.Background()) {
			t.Error("login should fail")
		}

		// no network calls
		if sub.submits != 0 || p.probes != 0 {
			t.Errorf("got %d submits and %d probes", sub.submits, p.probes)
		}
	}
}

// TestServiceLoginSubmitError tests Login of Service, submission fails.
func TestServiceLoginSubmitError(t *testing.T) {
	for _, err := range []error{
		fmt.Errorf("%w: timeout", portal.ErrFetch),
		portal.ErrNoLoginForm,
		fmt.Errorf("%w: connection reset", portal.ErrSubmit),
	} {
		p := &testProber{verdicts: []prober.Verdict{prober.Connected}}
		sub := &testSubmitter{err: err}
		s := NewService(testConfig(), p, sub, log.StandardLogger())

		if got := s.Login(context.Background()); !errors.Is(got, err) {
			t.Errorf("got %v, want %v", got, err)
		}
		if s.AttemptLogin(context.Background()) {
			t.Error("login should fail")
		}
		if p.probes != 0 {
			t.Errorf("should not probe after failed submission")
		}
	}
}

// TestServiceLoginNotConnected tests Login of Service, not connected after
// submission.
func TestServiceLoginNotConnected(t *testing.T) {
	for _, v := range []prober.Verdict{
		prober.CaptivePortal,
		prober.Unreachable,
	} {
		p := &testProber{verdicts: []prober.Verdict{v}}
		s := NewService(testConfig(), p, &testSubmitter{}, log.StandardLogger())

		err := s.Login(context.Background())
		var nce *NotConnectedError
		if !errors.As(err, &nce) || nce.Verdict != v {
			t.Errorf("got %v, want not connected error with %v", err, v)
		}
		if s.AttemptLogin(context.Background()) {
			t.Error("login should fail")
		}
	}
}

// TestServiceProbe tests Probe of Service.
func TestServiceProbe(t *testing.T) {
	p := &testProber{verdicts: []prober.Verdict{prober.CaptivePortal}}
	s := NewService(testConfig(), p, &testSubmitter{}, log.StandardLogger())
	if r := s.Probe(context.Background()); r.Verdict != prober.CaptivePortal {
		t.Errorf("got %v", r.Verdict)
	}
}

// testHotspot is a hotspot with a captive portal for testing. Probes are
// redirected to the portal until the login form is submitted.
type testHotspot struct {
	sync.Mutex
	portal   *httptest.Server
	probe    *httptest.Server
	loggedIn bool
	form     url.Values
}

// newTestHotspot returns a new test hotspot.
func newTestHotspot(t *testing.T) *testHotspot {
	h := &testHotspot{}
	h.portal = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Lock()
		defer h.Unlock()
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err == nil {
				h.form = r.PostForm
			}
			h.loggedIn = h.form.Get("username") == "alice" &&
				h.form.Get("pass") == "secret"
			return
		}
		_, _ = w.Write([]byte(`<html><form action="/login" method="post">
<input type="hidden" name="token" value="t0k3n">
<input name="username"><input type="password" name="pass">
</form></html>`))
	}))
	t.Cleanup(h.portal.Close)

	h.probe = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Lock()
		defer h.Unlock()
		if !h.loggedIn {
			// portal on another host name
			target := strings.Replace(h.portal.URL, "127.0.0.1", "localhost", 1)
			http.Redirect(w, r, target+"/", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(h.probe.Close)
	return h
}

// TestNew tests New, login to a test hotspot.
func TestNew(t *testing.T) {
	h := newTestHotspot(t)
	c := testConfig()
	c.HotspotURL = h.portal.URL + "/"
	c.ProbeURLs = []string{h.probe.URL + "/generate_204"}
	s := New(c, log.StandardLogger())

	if v := s.Probe(context.Background()).Verdict; v != prober.CaptivePortal {
		t.Errorf("got %v, want captive portal", v)
	}
	if !s.AttemptLogin(context.Background()) {
		t.Fatal("login should succeed")
	}
	want := url.Values{
		"token":    {"t0k3n"},
		"username": {"alice"},
		"pass":     {"secret"},
	}
	if !cmp.Equal(h.form, want) {
		t.Errorf("got %v, want %v", h.form, want)
	}

	// wrong password
	h.Lock()
	h.loggedIn = false
	h.Unlock()
	c = c.Copy()
	c.Password = "wrong"
	s.SetConfig(c)
	if s.AttemptLogin(context.Background()) {
		t.Error("login should fail")
	}
}

// TestServiceSetConfig tests SetConfig of Service.
func TestServiceSetConfig(t *testing.T) {
	h := newTestHotspot(t)
	c := testConfig()
	c.ProbeURLs = []string{"http://127.0.0.1:1/"}
	s := New(c, log.StandardLogger())
	if v := s.Probe(context.Background()).Verdict; v != prober.Unreachable {
		t.Errorf("got %v, want unreachable", v)
	}

	// new probe urls
	c = c.Copy()
	c.ProbeURLs = []string{h.probe.URL + "/"}
	s.SetConfig(c)
	if v := s.Probe(context.Background()).Verdict; v != prober.CaptivePortal {
		t.Errorf("got %v, want captive portal", v)
	}

	// service with external prober keeps it
	p := &testProber{verdicts: []prober.Verdict{prober.Connected}}
	s = NewService(testConfig(), p, &testSubmitter{}, log.StandardLogger())
	s.SetConfig(c)
	if v := s.Probe(context.Background()).Verdict; v != prober.Connected {
		t.Errorf("got %v, want connected", v)
	}
}

// TestServiceStatus tests Status of Service.
func TestServiceStatus(t *testing.T) {
	oldCurrentNetwork, oldCheckResolver := currentNetwork, checkResolver
	defer func() {
		currentNetwork, checkResolver = oldCurrentNetwork, oldCheckResolver
	}()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-time.Hour)
	c := testConfig()
	c.LastLogin = &last
	c.ProbeURLs = []string{"http://probe.example.com/generate_204"}
	p := &testProber{verdicts: []prober.Verdict{prober.Connected}}
	s := NewService(c, p, &testSubmitter{}, log.StandardLogger())

	// network info and resolver available
	var gotDevice, gotHost string
	currentNetwork = func(_ context.Context, device string) (*netinfo.Info, error) {
		gotDevice = device
		return &netinfo.Info{Interface: "wlan0", SSID: "Hotspot", Connected: true}, nil
	}
	checkResolver = func(_ context.Context, host string) (*netinfo.ResolverReport, error) {
		gotHost = host
		return &netinfo.ResolverReport{Host: host}, nil
	}

	got := s.Status(context.Background(), now, "wlan0")
	want := &Status{
		Verdict:        prober.Connected,
		HotspotURL:     "http://portal.example.com/",
		HasCredentials: true,
		LastLogin:      &last,
		SinceLogin:     time.Hour,
		RenewalEnabled: true,
		UntilRenewal:   2 * time.Hour,
		Network:        &netinfo.Info{Interface: "wlan0", SSID: "Hotspot", Connected: true},
		Resolver:       &netinfo.ResolverReport{Host: "probe.example.com"},
	}
	if !cmp.Equal(got, want) {
		t.Errorf("unexpected status: %s", cmp.Diff(want, got))
	}
	if gotDevice != "wlan0" || gotHost != "probe.example.com" {
		t.Errorf("got device %q and host %q", gotDevice, gotHost)
	}

	// errors, no login
	currentNetwork = func(context.Context, string) (*netinfo.Info, error) {
		return nil, netinfo.ErrNoInterface
	}
	checkResolver = func(context.Context, string) (*netinfo.ResolverReport, error) {
		return nil, errors.New("test error")
	}
	c = c.Copy()
	c.LastLogin = nil
	s.SetConfig(c)

	got = s.Status(context.Background(), now, "")
	if got.LastLogin != nil || got.SinceLogin != 0 || got.UntilRenewal != 0 {
		t.Errorf("unexpected login times: %+v", got)
	}
	if got.Network != nil || got.NetworkError != netinfo.ErrNoInterface.Error() {
		t.Errorf("unexpected network: %+v", got)
	}
	if got.Resolver != nil || got.ResolverErr != "test error" {
		t.Errorf("unexpected resolver: %+v", got)
	}
}
