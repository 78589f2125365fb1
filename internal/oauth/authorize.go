// Package oauth obtains OAuth2 tokens for the Hue remote API.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/dokzlo13/qhue/internal/console"
)

// Endpoint is the Hue remote API OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://api.meethue.com/v2/oauth2/authorize",
	TokenURL: "https://api.meethue.com/v2/oauth2/token",
}

var (
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrNoCode        = errors.New("redirect carries no authorization code")
)

// RedirectSource produces the URL the authorization server redirected to.
type RedirectSource interface {
	RedirectURL(ctx context.Context) (string, error)
}

// Config contains OAuth client settings
type Config struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint // Defaults to Endpoint
}

// Authorizer runs the authorization-code flow for the remote API.
type Authorizer struct {
	config   *oauth2.Config
	source   RedirectSource
	out      io.Writer
	newState func() string
}

// NewAuthorizer creates an authorizer that prints the authorization URL to
// out and reads the redirect from source.
func NewAuthorizer(cfg Config, source RedirectSource, out io.Writer) *Authorizer {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = Endpoint
	}

	return &Authorizer{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
		},
		source:   source,
		out:      out,
		newState: uuid.NewString,
	}
}

// Authorize returns token unchanged when it is non-nil. Otherwise it prints
// the authorization URL, waits for the redirect, checks the state and
// exchanges the code.
func (a *Authorizer) Authorize(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token != nil {
		return token, nil
	}

	state := a.newState()
	authURL := a.config.AuthCodeURL(state)
	fmt.Fprintln(a.out, "Open a browser at", authURL)

	redirect, err := a.source.RedirectURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain redirect: %w", err)
	}
	log.Debug().Str("redirect", redirect).Msg("Received OAuth redirect")

	code, err := parseRedirect(redirect, state)
	if err != nil {
		return nil, err
	}

	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	log.Info().Time("expiry", tok.Expiry).Msg("Obtained remote API token")
	return tok, nil
}

// SavingClient returns an HTTP client that authorizes requests with token
// and refreshes it when needed, writing every refreshed token to path. Use
// it as the session of a hue.RemoteBridge.
func (a *Authorizer) SavingClient(ctx context.Context, token *oauth2.Token, path string) *http.Client {
	src := &savingSource{
		src:  a.config.TokenSource(ctx, token),
		path: path,
		last: token.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, src))
}

// savingSource persists tokens it has not seen before.
type savingSource struct {
	src  oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}

	if err := SaveToken(s.path, tok); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Failed to save refreshed token")
		return tok, nil
	}
	s.last = tok.AccessToken
	log.Info().Time("expiry", tok.Expiry).Msg("Saved refreshed remote API token")
	return tok, nil
}

func parseRedirect(redirect, state string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(redirect))
	if err != nil {
		return "", fmt.Errorf("invalid redirect url: %w", err)
	}

	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if q.Get("state") != state {
		return "", ErrStateMismatch
	}

	code := q.Get("code")
	if code == "" {
		return "", ErrNoCode
	}
	return code, nil
}

// PasteSource asks the user to paste the redirect URL.
type PasteSource struct {
	out    io.Writer
	reader *console.Reader
}

// NewPasteSource creates a source reading one line from in.
func NewPasteSource(in io.Reader, out io.Writer) *PasteSource {
	return &PasteSource{out: out, reader: console.NewReader(in)}
}

// RedirectURL prompts and reads one line.
func (s *PasteSource) RedirectURL(ctx context.Context) (string, error) {
	fmt.Fprint(s.out, "Paste the full redirect URL here: ")

	line, err := s.reader.ReadLine(ctx)
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// LoadToken reads a token saved by SaveToken. A missing file returns nil.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return &tok, nil
}

// SaveToken writes token as JSON with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}
