// Package session maintains an authenticated cookie session against an
// iLearning/ee-class site and fetches pages through it.
//
// Login works the way a browser does: fetch the login page, locate the
// form, carry every hidden input through untouched (CSRF tokens and
// theme-specific fields vary by school), and post the credentials to
// the form's action. Pages are decoded charset-aware since older
// deployments still serve Big5.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/html/charset"
)

const (
	userAgent      = "ilearning-ics/1.0 (+github.com/clwen/ilearning-ics)"
	requestTimeout = 30 * time.Second
	fetchRetries   = 3
)

// loginPaths are tried in order until one serves a form. Moodle themes
// use /login/index.php; ee-class 3.0 routes through /login.
var loginPaths = []string{"/login/index.php", "/login", "/login.php"}

// loginErrorMarkers appear in the post-login page when credentials were
// rejected; their presence is treated as an authentication failure even
// though the HTTP status is 200.
var loginErrorMarkers = []string{"loginerrormessage", "invalid login"}

// Session is an authenticated HTTP session with cookie persistence and
// redirect following.
type Session struct {
	client   *http.Client
	baseURL  *url.URL
	username string
	password string
}

// New builds an unauthenticated session for the given site.
func New(baseURL, username, password string) (*Session, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Session{
		client: &http.Client{
			Timeout: requestTimeout,
			Jar:     jar,
		},
		baseURL:  u,
		username: username,
		password: password,
	}, nil
}

// Resolve turns a possibly-relative reference into an absolute URL on
// the site.
func (s *Session) Resolve(ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return s.baseURL.ResolveReference(r).String()
}

// Login authenticates the session. Failure here is fatal for the whole
// run; nothing downstream can succeed without a session.
func (s *Session) Login(ctx context.Context) error {
	var doc *goquery.Document
	var loginURL string
	for _, path := range loginPaths {
		u := s.Resolve(path)
		d, err := s.fetchOnce(ctx, u)
		if err != nil {
			continue
		}
		if d.Find("form").Length() > 0 {
			doc, loginURL = d, u
			break
		}
	}
	if doc == nil {
		return fmt.Errorf("locating login form on %s: no reachable page with a form", s.baseURL)
	}

	form := doc.Find("form#login").First()
	if form.Length() == 0 {
		form = doc.Find("form").First()
	}

	payload := url.Values{}
	payload.Set("username", s.username)
	payload.Set("password", s.password)
	form.Find(`input[type="hidden"]`).Each(func(_ int, inp *goquery.Selection) {
		name, _ := inp.Attr("name")
		if name == "" {
			return
		}
		payload.Set(name, inp.AttrOr("value", ""))
	})

	action := s.Resolve(loginURL)
	if ref, ok := form.Attr("action"); ok && ref != "" {
		if base, err := url.Parse(loginURL); err == nil {
			if r, err := url.Parse(ref); err == nil {
				action = base.ResolveReference(r).String()
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(payload.Encode()))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting login form: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login post returned status %d", resp.StatusCode)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return fmt.Errorf("reading login response: %w", err)
	}
	lower := strings.ToLower(body)
	for _, marker := range loginErrorMarkers {
		if strings.Contains(lower, marker) {
			return errors.New("login rejected by site, check credentials")
		}
	}
	return nil
}

// Fetch retrieves and parses a page, retrying transient failures with
// exponential backoff. Client errors (4xx) are not retried.
func (s *Session) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document
	op := func() error {
		d, err := s.fetchOnce(ctx, pageURL)
		if err != nil {
			return err
		}
		doc = d
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), fetchRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Session) fetchOnce(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decoding %s: %w", pageURL, err))
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parsing %s: %w", pageURL, err))
	}
	return doc, nil
}

func decodeBody(resp *http.Response) (string, error) {
	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
