package portal

import (
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mustParse parses rawURL.
func mustParse(t *testing.T, rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

// TestIsUsernameName tests IsUsernameName.
func TestIsUsernameName(t *testing.T) {
	for name, want := range map[string]bool{
		"username":  true,
		"USER":      true,
		"user_id":   true,
		"Email":     true,
		"loginName": true,
		"auth_user": true,
		"password":  false,
		"csrf":      false,
		"dst":       false,
		"":          false,
	} {
		if got := IsUsernameName(name); got != want {
			t.Errorf("IsUsernameName(%q) = %t, want %t", name, got, want)
		}
	}
}

// TestFindLoginForm tests FindLoginForm.
func TestFindLoginForm(t *testing.T) {
	onlyUser := &Form{Action: "u", Fields: []FormField{{Name: "user"}}}
	onlyPass := &Form{Action: "p", Fields: []FormField{
		{Name: "pin", Kind: KindPassword},
	}}
	passNamedUser := &Form{Action: "pu", Fields: []FormField{
		{Name: "user_password", Kind: KindPassword},
	}}
	first := &Form{Action: "first", Fields: []FormField{
		{Name: "Email"},
		{Name: "pw", Kind: KindPassword},
	}}
	second := &Form{Action: "second", Fields: []FormField{
		{Name: "username"},
		{Name: "password", Kind: KindPassword},
	}}

	// no login form
	for _, forms := range [][]*Form{
		nil,
		{onlyUser},
		{onlyPass, onlyUser},
		{passNamedUser},
	} {
		if _, err := FindLoginForm(forms); !errors.Is(err, ErrNoLoginForm) {
			t.Errorf("got %v, want %v", err, ErrNoLoginForm)
		}
	}

	// first login form in document order
	got, err := FindLoginForm([]*Form{onlyUser, first, onlyPass, second})
	if err != nil {
		t.Fatal(err)
	}
	if got != first {
		t.Errorf("got form %s, want %s", got.Action, first.Action)
	}
}

// TestResolveAction tests ResolveAction.
func TestResolveAction(t *testing.T) {
	page := mustParse(t, "http://hotspot.example.com/portal/index.html?x=1")

	for action, want := range map[string]string{
		"":                               "http://hotspot.example.com/portal/index.html?x=1",
		"login":                          "http://hotspot.example.com/portal/login",
		"/login":                         "http://hotspot.example.com/login",
		"../auth?id=2":                   "http://hotspot.example.com/auth?id=2",
		"https://auth.example.net/login": "https://auth.example.net/login",
		"//auth.example.net/login":       "http://auth.example.net/login",
	} {
		got, err := ResolveAction(&Form{Action: action}, page)
		if err != nil {
			t.Errorf("action %q: %v", action, err)
			continue
		}
		if got.String() != want {
			t.Errorf("action %q: got %s, want %s", action, got, want)
		}
	}

	// empty action must not share the page url
	got, _ := ResolveAction(&Form{}, page)
	got.Path = "/changed"
	if page.Path != "/portal/index.html" {
		t.Errorf("page url modified")
	}

	// invalid
	for _, action := range []string{
		"javascript:void(0)",
		"mailto:admin@example.com",
		"http://[::1",
	} {
		if _, err := ResolveAction(&Form{Action: action}, page); !errors.Is(err, ErrInvalidAction) {
			t.Errorf("action %q: got %v, want %v", action, err, ErrInvalidAction)
		}
	}
}

// TestBuildPayload tests BuildPayload.
func TestBuildPayload(t *testing.T) {
	fields := []FormField{
		{Name: "user", Kind: KindOpaque},
		{Name: "password", Kind: KindPassword},
		{Name: "csrf", Kind: KindOpaque, Value: "abc123"},
	}
	creds := &Credentials{Username: "alice", Password: "secret"}

	want := url.Values{
		"user":     {"alice"},
		"password": {"secret"},
		"csrf":     {"abc123"},
	}
	got := BuildPayload(fields, creds)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

// TestBuildPayloadKinds tests BuildPayload with other field kinds.
func TestBuildPayloadKinds(t *testing.T) {
	fields := []FormField{
		{Name: "id", Kind: KindUsername, Value: "default"},
		{Name: "login_password", Kind: KindPassword, Value: "x"},
		{Name: "dst", Value: "http://www.google.com/"},
		{Name: "dst", Value: "second"},
		{Name: "empty"},
	}
	creds := &Credentials{Username: "bob", Password: "pw"}

	want := url.Values{
		"id":             {"bob"},
		"login_password": {"pw"},
		"dst":            {"http://www.google.com/", "second"},
		"empty":          {""},
	}
	got := BuildPayload(fields, creds)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

// TestLocate tests Locate.
func TestLocate(t *testing.T) {
	page := mustParse(t, "http://hotspot.example.com/index.html")

	want := &LoginForm{
		Action: mustParse(t, "http://hotspot.example.com/login"),
		Fields: []FormField{
			{Name: "dst"},
			{Name: "popup", Value: "true"},
			{Name: "username", Kind: KindUsername},
			{Name: "password", Kind: KindPassword},
			{Name: "remember", Value: "on"},
			{Name: "plan", Value: "free"},
			{Name: "lang", Value: "id"},
			{Name: "zone", Value: "Lobby"},
			{Name: "note", Value: "hi & bye"},
			{Name: "submit", Kind: KindSubmit, Value: "OK"},
		},
	}
	got, err := Locate([]byte(testPortalPage), page)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("login form mismatch (-want +got):\n%s", diff)
	}

	// no login form
	if _, err := Locate([]byte("<form><input name=q></form>"), page); !errors.Is(err, ErrNoLoginForm) {
		t.Errorf("got %v, want %v", err, ErrNoLoginForm)
	}

	// invalid action
	invalid := `<form action="javascript:login()"><input name="user"><input type="password" name="pass"></form>`
	if _, err := Locate([]byte(invalid), page); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("got %v, want %v", err, ErrInvalidAction)
	}
}

// TestLocateSubmitButton tests Locate and BuildPayload with a named submit
// button, its value is sent even if its name looks like a username.
func TestLocateSubmitButton(t *testing.T) {
	page := mustParse(t, "http://hotspot.example.com/index.html")
	creds := &Credentials{Username: "alice", Password: "secret"}

	for _, test := range []struct {
		html string
		want url.Values
	}{
		{
			html: `<form action="/login" method="post">
<input type="hidden" name="dst" value="http://www.google.com/">
<input name="username"><input type="password" name="password">
<input type="submit" name="submit" value="Login"></form>`,
			want: url.Values{
				"dst":      {"http://www.google.com/"},
				"username": {"alice"},
				"password": {"secret"},
				"submit":   {"Login"},
			},
		},
		{
			html: `<form action="/login" method="post">
<input name="user"><input type="password" name="pass">
<input type="submit" name="login" value="Log in">
<input type="submit" name="register" value="Sign up"></form>`,
			want: url.Values{
				"user":  {"alice"},
				"pass":  {"secret"},
				"login": {"Log in"},
			},
		},
	} {
		lf, err := Locate([]byte(test.html), page)
		if err != nil {
			t.Fatal(err)
		}
		got := BuildPayload(lf.Fields, creds)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("payload mismatch (-want +got):\n%s", diff)
		}
	}

	// a submit button alone is no username field
	onlySubmit := `<form><input type="submit" name="login" value="Go"><input type="password" name="pw"></form>`
	if _, err := Locate([]byte(onlySubmit), page); !errors.Is(err, ErrNoLoginForm) {
		t.Errorf("got %v, want %v", err, ErrNoLoginForm)
	}
}

// TestLocateIdempotent tests that Locate and BuildPayload return the same
// results for the same page.
func TestLocateIdempotent(t *testing.T) {
	page := mustParse(t, "http://hotspot.example.com/index.html")
	creds := &Credentials{Username: "alice", Password: "secret"}

	first, err := Locate([]byte(testPortalPage), page)
	if err != nil {
		t.Fatal(err)
	}
	firstPayload := BuildPayload(first.Fields, creds)

	for i := 0; i < 5; i++ {
		got, err := Locate([]byte(testPortalPage), page)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(first, got); diff != "" {
			t.Errorf("login form changed (-first +got):\n%s", diff)
		}
		if diff := cmp.Diff(firstPayload, BuildPayload(got.Fields, creds)); diff != "" {
			t.Errorf("payload changed (-first +got):\n%s", diff)
		}
	}
}
