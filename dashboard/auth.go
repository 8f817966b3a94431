package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"strikebot/utils/logger"
)

const stateTTL = 10 * time.Minute

// oauthFlow runs the Discord authorization-code login. Pending states live in
// memory and are single use.
type oauthFlow struct {
	conf    *oauth2.Config
	apiBase string
	client  *http.Client

	mu     sync.Mutex
	states map[string]time.Time
}

func newOAuthFlow(cfg Config) *oauthFlow {
	return &oauthFlow{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.PublicBaseURL + "/auth/callback",
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		client:  &http.Client{Timeout: requestTimeout},
		states:  make(map[string]time.Time),
	}
}

func (f *oauthFlow) newState(now time.Time) string {
	state := uuid.NewString()
	f.mu.Lock()
	defer f.mu.Unlock()
	for s, exp := range f.states {
		if now.After(exp) {
			delete(f.states, s)
		}
	}
	f.states[state] = now.Add(stateTTL)
	return state
}

func (f *oauthFlow) consumeState(state string, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	exp, ok := f.states[state]
	if !ok {
		return false
	}
	delete(f.states, state)
	return !now.After(exp)
}

type discordUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// identify exchanges the code and fetches the logged-in user.
func (f *oauthFlow) identify(ctx context.Context, code string) (*discordUser, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	tok, err := f.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch user: status %d", resp.StatusCode)
	}

	var u discordUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("decode user: missing id")
	}
	return &u, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ClientID == "" || s.cfg.PublicBaseURL == "" {
		writeError(w, http.StatusInternalServerError, "client id and public base url are required")
		return
	}
	state := s.oauth.newState(s.cfg.Clock.Now())
	http.Redirect(w, r, s.oauth.conf.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "missing code/state")
		return
	}
	now := s.cfg.Clock.Now()
	if !s.oauth.consumeState(state, now) {
		writeError(w, http.StatusBadRequest, "invalid or expired state")
		return
	}
	if s.cfg.ClientSecret == "" {
		writeError(w, http.StatusInternalServerError, "client secret is required")
		return
	}

	u, err := s.oauth.identify(r.Context(), code)
	if err != nil {
		logger.Warnf("Dashboard login failed: %v", err)
		writeError(w, http.StatusBadRequest, "login failed")
		return
	}
	logger.Infof("Dashboard login by %s (%s)", u.Username, u.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.sessions.issue(u.ID, now),
		Path:     "/",
		MaxAge:   int(s.cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		// Browsers drop Secure cookies over plain http.
		Secure:   strings.HasPrefix(strings.ToLower(s.cfg.PublicBaseURL), "https://"),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/api/me", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}
