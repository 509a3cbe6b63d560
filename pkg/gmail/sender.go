// Package gmail exposes the send_email MCP tool backed by the Gmail API. The
// OAuth desktop flow runs lazily on the first send: cached tokens are reused
// and refreshed, and only a missing or dead token opens the browser consent
// flow against a loopback listener.
package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/runlog"
)

// Default file names, resolved relative to the working directory unless the
// GMAIL_CREDENTIALS_PATH and GMAIL_TOKEN_PATH variables override them.
const (
	defaultCredentialsFile = "gmail_credentials.json"
	defaultTokenFile       = "gmail_token.json"
)

// Transport sends one raw base64url-encoded RFC 822 message and returns the
// Gmail message id.
type Transport interface {
	Send(ctx context.Context, raw string) (string, error)
}

// Sender owns the send_email behavior: the address sanity check, MIME
// assembly and the API call. Results are protocol strings; the tool never
// fails the MCP call itself.
type Sender struct {
	log       *runlog.ServerLogger
	transport Transport
}

// NewSender builds a Sender that authenticates on first use.
func NewSender(log *runlog.ServerLogger) *Sender {
	if log == nil {
		log = runlog.NewServerLogger()
	}
	return &Sender{log: log, transport: &apiTransport{log: log}}
}

// NewSenderWithTransport injects a custom transport. Tests use it to capture
// the encoded payload without touching OAuth or the network.
func NewSenderWithTransport(log *runlog.ServerLogger, transport Transport) *Sender {
	if log == nil {
		log = runlog.NewServerLogger()
	}
	return &Sender{log: log, transport: transport}
}

// SendEmail delivers one message. bodyHTML may be empty for a plaintext-only
// email. The GMAIL_SENDER variable, when set, becomes the From header and
// must be a verified alias of the authorized account.
func (s *Sender) SendEmail(ctx context.Context, to, subject, body, bodyHTML string) string {
	params := map[string]any{"to": to, "subject": subject, "body_len": len(body)}

	if !strings.Contains(to, "@") {
		result := `ERROR: Invalid "to" address.`
		s.log.Infof("tool=send_email params=%v result=%q", params, result)
		return result
	}

	message := Message{
		To:       to,
		From:     os.Getenv("GMAIL_SENDER"),
		Subject:  subject,
		Body:     body,
		HTMLBody: bodyHTML,
	}

	var result string
	id, err := s.transport.Send(ctx, message.Encode())
	if err != nil {
		result = fmt.Sprintf("ERROR: %v", err)
	} else {
		if id == "" {
			id = "unknown"
		}
		result = fmt.Sprintf("EMAIL_SENT: to=%s, id=%s", to, id)
	}
	s.log.Infof("tool=send_email params=%v result=%q", params, result)
	return result
}

// apiTransport authenticates with the OAuth desktop flow on first use and
// keeps the built service for the rest of the session.
type apiTransport struct {
	log *runlog.ServerLogger

	mu      sync.Mutex
	service *gmailapi.Service
}

func (t *apiTransport) Send(ctx context.Context, raw string) (string, error) {
	service, err := t.serviceFor(ctx)
	if err != nil {
		return "", err
	}
	resp, err := service.Users.Messages.Send("me", &gmailapi.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	return resp.Id, nil
}

func (t *apiTransport) serviceFor(ctx context.Context) (*gmailapi.Service, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.service != nil {
		return t.service, nil
	}

	credentialsPath := envPath("GMAIL_CREDENTIALS_PATH", defaultCredentialsFile)
	tokenPath := envPath("GMAIL_TOKEN_PATH", defaultTokenFile)

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("Gmail OAuth client file not found at %s. Download it from Google Cloud Console (OAuth 2.0 Client ID, Desktop app)", credentialsPath)
	}
	config, err := google.ConfigFromJSON(data, gmailapi.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client file: %w", err)
	}

	token, err := t.token(ctx, config, tokenPath)
	if err != nil {
		return nil, err
	}

	service, err := gmailapi.NewService(ctx, option.WithTokenSource(config.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("build Gmail service: %w", err)
	}
	t.service = service
	return service, nil
}

// token loads the cached token, refreshing it when expired, and falls back to
// the interactive consent flow.
func (t *apiTransport) token(ctx context.Context, config *oauth2.Config, tokenPath string) (*oauth2.Token, error) {
	if data, err := os.ReadFile(tokenPath); err == nil {
		var cached oauth2.Token
		if err := json.Unmarshal(data, &cached); err == nil {
			if cached.Valid() {
				return &cached, nil
			}
			if cached.RefreshToken != "" {
				t.log.Infof("Refreshing Gmail token...")
				refreshed, err := config.TokenSource(ctx, &cached).Token()
				if err == nil {
					t.saveToken(tokenPath, refreshed)
					return refreshed, nil
				}
				t.log.Errorf("token refresh failed: %v", err)
			}
		}
	}

	t.log.Infof("Starting Gmail OAuth flow...")
	token, err := t.authorize(ctx, config)
	if err != nil {
		return nil, err
	}
	t.saveToken(tokenPath, token)
	return token, nil
}

// authorize runs the loopback consent flow: a local listener receives the
// redirect and the user approves access in a browser.
func (t *apiTransport) authorize(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("start OAuth callback listener: %w", err)
	}
	defer listener.Close()

	config.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr())
	state := uuid.NewString()
	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	t.log.Infof("Open this URL in a browser to authorize Gmail: %s", authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- errors.New("oauth state mismatch")
			return
		}
		code := query.Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			errCh <- errors.New("authorization response missing code")
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		codeCh <- code
	})}
	go server.Serve(listener)
	defer server.Close()

	select {
	case code := <-codeCh:
		return config.Exchange(ctx, code)
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *apiTransport) saveToken(path string, token *oauth2.Token) {
	data, err := json.Marshal(token)
	if err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.log.Errorf("save Gmail token: %v", err)
		return
	}
	t.log.Infof("Saved Gmail token to %s", path)
}

func envPath(name, fallback string) string {
	path := os.Getenv(name)
	if path == "" {
		return fallback
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
