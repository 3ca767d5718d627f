// Package gcal holds the authenticated Google Calendar session and the
// insert-or-update writer the pipeline pushes events through.
package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	appLog "mocal/internal/log"
)

// MaterializeSecretFiles writes the OAuth client credentials and token files
// from environment variables holding their literal JSON contents, when the
// variables are set and the files do not already exist. This mirrors the
// bootstrap convention used in unattended deployments.
func MaterializeSecretFiles(credentialsPath, tokenPath string) error {
	if err := materialize(credentialsPath, os.Getenv("MOCAL_GOOGLE_CREDENTIALS_JSON")); err != nil {
		return err
	}
	return materialize(tokenPath, os.Getenv("MOCAL_GOOGLE_TOKEN_JSON"))
}

func materialize(path, contents string) error {
	if path == "" || contents == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	appLog.Info("gcal: materializing secret file from environment", "path", path)
	return os.WriteFile(path, []byte(contents), 0o600)
}

// NewService builds an authorized Calendar API client from the OAuth client
// secrets in credentialsPath and the user token in tokenPath.
//
// When the token file is missing or unreadable:
//   - with allowConsent, an interactive consent flow is started on a local
//     ephemeral port and the obtained token is persisted;
//   - without it, the absence of a valid token is a fatal configuration
//     error rather than a prompt, so unattended runs fail fast.
//
// The token file is rewritten whenever a refresh produces a new token.
func NewService(ctx context.Context, credentialsPath, tokenPath string, allowConsent bool) (*calendar.Service, error) {
	raw, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("gcal: reading client credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(raw, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("gcal: parsing client credentials: %w", err)
	}

	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		if !allowConsent {
			return nil, fmt.Errorf("gcal: no usable token at %s and interactive consent is disabled: %w", tokenPath, err)
		}
		tok, err = consentFlow(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("gcal: consent flow: %w", err)
		}
		if err := saveToken(tokenPath, tok); err != nil {
			appLog.Error("gcal: persisting fresh token failed", err, "path", tokenPath)
		}
	}

	src := oauth2.ReuseTokenSource(tok, &persistingSource{
		path: tokenPath,
		src:  conf.TokenSource(ctx, tok),
	})

	svc, err := calendar.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("gcal: building calendar client: %w", err)
	}
	return svc, nil
}

// persistingSource rewrites the token file every time the wrapped source
// produces a refreshed token, so later runs skip the refresh round-trip.
type persistingSource struct {
	path string
	src  oauth2.TokenSource
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	if err := saveToken(p.path, tok); err != nil {
		appLog.Error("gcal: persisting refreshed token failed", err, "path", p.path)
	}
	return tok, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("token file holds no tokens")
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	raw, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// consentFlow runs the one-time interactive authorization: a loopback
// listener on an ephemeral port receives the redirect with the auth code,
// which is exchanged for a token.
func consentFlow(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	defer ln.Close()

	conf.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())
	state := fmt.Sprintf("mocal-%d", time.Now().UnixNano())

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
	appLog.Info("gcal: open this URL in a browser to authorize calendar access", "url", authURL)

	codeCh := make(chan string, 1)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authorization received. You can close this tab.")
		codeCh <- code
	})}
	go srv.Serve(ln)
	defer srv.Close()

	select {
	case code := <-codeCh:
		return conf.Exchange(ctx, code)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
