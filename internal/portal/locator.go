// Package portal contains the login form locator and submitter for
// captive portals.
package portal

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNoLoginForm is returned if a page does not contain a login form.
	ErrNoLoginForm = errors.New("no login form found")

	// ErrInvalidAction is returned if a form action cannot be submitted to.
	ErrInvalidAction = errors.New("invalid form action")
)

// usernameTokens are substrings of field names that identify username
// fields.
var usernameTokens = []string{"username", "user", "email", "login"}

// Credentials are the login credentials for the portal.
type Credentials struct {
	Username string
	Password string
}

// LoginForm is a located login form ready for submission.
type LoginForm struct {
	Action *url.URL
	Fields []FormField
}

// IsUsernameName returns whether name looks like the name of a username
// field.
func IsUsernameName(name string) bool {
	name = strings.ToLower(name)
	for _, t := range usernameTokens {
		if strings.Contains(name, t) {
			return true
		}
	}
	return false
}

// classify returns the kind of field. Password and submit fields keep their
// kind, other fields are usernames if their name looks like one.
func classify(f FormField) FieldKind {
	switch {
	case f.Kind == KindPassword, f.Kind == KindSubmit:
		return f.Kind
	case f.Kind == KindUsername, IsUsernameName(f.Name):
		return KindUsername
	}
	return KindOpaque
}

// isLoginForm returns whether form has a username and a password field.
func isLoginForm(form *Form) bool {
	user, pass := false, false
	for _, f := range form.Fields {
		switch classify(f) {
		case KindUsername:
			user = true
		case KindPassword:
			pass = true
		}
	}
	return user && pass
}

// FindLoginForm returns the first login form in forms.
func FindLoginForm(forms []*Form) (*Form, error) {
	for _, f := range forms {
		if isLoginForm(f) {
			return f, nil
		}
	}
	return nil, ErrNoLoginForm
}

// ResolveAction returns the absolute submission target of form on the page
// with pageURL.
func ResolveAction(form *Form, pageURL *url.URL) (*url.URL, error) {
	if form.Action == "" {
		u := *pageURL
		return &u, nil
	}
	u, err := pageURL.Parse(form.Action)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q",
			ErrInvalidAction, u.Scheme)
	}
	return u, nil
}

// Locate finds the login form in the page that was retrieved from pageURL.
func Locate(page []byte, pageURL *url.URL) (*LoginForm, error) {
	forms, err := ParseForms(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	form, err := FindLoginForm(forms)
	if err != nil {
		return nil, err
	}
	action, err := ResolveAction(form, pageURL)
	if err != nil {
		return nil, err
	}

	lf := &LoginForm{Action: action}
	for _, f := range form.Fields {
		f.Kind = classify(f)
		lf.Fields = append(lf.Fields, f)
	}
	return lf, nil
}

// BuildPayload returns the form values submitted for fields with creds.
// Username fields get the username, password fields get the password, all
// other fields including the submit button keep their default value.
func BuildPayload(fields []FormField, creds *Credentials) url.Values {
	values := url.Values{}
	for _, f := range fields {
		switch classify(f) {
		case KindUsername:
			values.Add(f.Name, creds.Username)
		case KindPassword:
			values.Add(f.Name, creds.Password)
		default:
			values.Add(f.Name, f.Value)
		}
	}
	return values
}
