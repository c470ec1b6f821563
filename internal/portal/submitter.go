package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// maxPageSize is the maximum size of a portal page.
const maxPageSize = 2 * 1024 * 1024

var (
	// ErrFetch is returned if the portal page cannot be retrieved.
	ErrFetch = errors.New("could not fetch portal page")

	// ErrSubmit is returned if the login form cannot be submitted.
	ErrSubmit = errors.New("could not submit login form")
)

// Submitter fills and submits portal login forms.
type Submitter struct {
	client *http.Client
	log    log.FieldLogger
}

// fetch retrieves the page at portalURL, returns its body and final URL.
func (s *Submitter) fetch(ctx context.Context, portalURL string, timeout time.Duration) ([]byte, *url.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, portalURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if len(body) == 0 {
		return nil, nil, fmt.Errorf("%w: empty body, status %d",
			ErrFetch, resp.StatusCode)
	}

	s.log.WithFields(log.Fields{
		"url":    resp.Request.URL.String(),
		"status": resp.StatusCode,
		"size":   len(body),
	}).Info("Portal page accessed")
	return body, resp.Request.URL, nil
}

// post submits values to action.
func (s *Submitter) post(ctx context.Context, action *url.URL, values url.Values, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		action.String(), strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageSize))
	_ = resp.Body.Close()

	// the response is not used to decide success, portals return
	// success pages without lifting the block
	s.log.WithFields(log.Fields{
		"url":    resp.Request.URL.String(),
		"status": resp.StatusCode,
	}).Debug("Portal login form response")
	return nil
}

// Submit fetches the portal page at portalURL, locates the login form and
// submits it with creds. Each request is limited by timeout.
func (s *Submitter) Submit(ctx context.Context, portalURL string, creds *Credentials, timeout time.Duration) error {
	page, pageURL, err := s.fetch(ctx, portalURL, timeout)
	if err != nil {
		return err
	}

	form, err := Locate(page, pageURL)
	if err != nil {
		return err
	}

	values := BuildPayload(form.Fields, creds)
	s.log.WithFields(log.Fields{
		"action": form.Action.String(),
		"fields": len(form.Fields),
	}).Info("Submitting login form")
	return s.post(ctx, form.Action, values, timeout)
}

// NewSubmitter returns a new Submitter that sends requests with client.
func NewSubmitter(client *http.Client, logger log.FieldLogger) *Submitter {
	return &Submitter{
		client: client,
		log:    logger,
	}
}
