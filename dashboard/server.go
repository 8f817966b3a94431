// Package dashboard serves the moderator web dashboard: Discord OAuth2 login
// and JSON endpoints over the same engines the slash commands use.
package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"strikebot/discipline"
	"strikebot/giveaway"
	"strikebot/metrics"
	"strikebot/model"
	"strikebot/utils"
	"strikebot/utils/clock"
	"strikebot/utils/logger"
)

const (
	defaultAuthURL  = "https://discord.com/oauth2/authorize"
	defaultTokenURL = "https://discord.com/api/oauth2/token"
	defaultAPIBase  = "https://discord.com/api/v10"
	shutdownTimeout = 10 * time.Second
	requestTimeout  = 20 * time.Second
)

// Access resolves dashboard users against the guild.
type Access interface {
	Level(ctx context.Context, userID string) (string, *discordgo.Member, error)
	TextChannels(ctx context.Context) ([]*discordgo.Channel, error)
}

type Moderation interface {
	Unmute(ctx context.Context, guildID, userID string) bool
	DeleteWarn(ctx context.Context, in *discipline.WarnInput) error
}

type Giveaways interface {
	Create(ctx context.Context, in *giveaway.CreateInput) (*model.Giveaway, error)
	Cancel(ctx context.Context, id int64, actorID string) error
	Reroll(ctx context.Context, id int64, actorID string) ([]string, error)
}

type Counters interface {
	States(ctx context.Context) ([]model.CounterState, error)
	SetOverride(ctx context.Context, kind model.CounterKind, value *int64) error
}

type Store interface {
	ListDiscipline(ctx context.Context, guildID string) ([]model.DisciplineRecord, error)
	ListMutes(ctx context.Context, guildID string) ([]model.MuteRecord, error)
	RecentGiveaways(ctx context.Context, guildID string, limit int) ([]model.GiveawaySummary, error)
	Size(ctx context.Context) (int64, error)
}

type Config struct {
	Addr          string
	PublicBaseURL string
	ClientID      string
	ClientSecret  string
	SessionSecret string
	SessionMaxAge time.Duration
	GuildID       string
	Location      *time.Location

	// Overridable for tests.
	AuthURL  string
	TokenURL string
	APIBase  string

	Access     Access
	Moderation Moderation
	Giveaways  Giveaways
	// Counters may be nil when counters are disabled.
	Counters  Counters
	Store     Store
	Clock     clock.Clock
	StartedAt func() time.Time
}

type Server struct {
	cfg      Config
	sessions sessions
	oauth    *oauthFlow
	handler  http.Handler
}

func New(cfg Config) (*Server, error) {
	switch {
	case cfg.Access == nil, cfg.Moderation == nil, cfg.Giveaways == nil, cfg.Store == nil:
		return nil, errors.New("dashboard: access, moderation, giveaways and store are required")
	case cfg.SessionSecret == "":
		return nil, errors.New("dashboard: session secret is required")
	case cfg.GuildID == "":
		return nil, errors.New("dashboard: guild id is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = &clock.DefaultClock{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = 7 * 24 * time.Hour
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	s := &Server{
		cfg:      cfg,
		sessions: sessions{secret: []byte(cfg.SessionSecret), maxAge: cfg.SessionMaxAge},
		oauth:    newOAuthFlow(cfg),
	}
	s.handler = withRequestLogging(s.routes())
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Dashboard listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Infof("Dashboard stopped")
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) { writeOK(w) })
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.HandleFunc("GET /logout", s.handleLogout)

	mux.HandleFunc("GET /api/me", s.handleMe)
	mux.HandleFunc("GET /api/status", s.allowed(s.handleStatus))
	mux.HandleFunc("GET /api/channels", s.allowed(s.handleChannels))
	mux.HandleFunc("GET /api/warns", s.allowed(s.handleWarns))
	mux.HandleFunc("POST /api/warns/clear", s.allowed(s.handleClearWarns))
	mux.HandleFunc("GET /api/mutes", s.allowed(s.handleMutes))
	mux.HandleFunc("POST /api/mutes/unmute", s.allowed(s.handleUnmute))
	mux.HandleFunc("GET /api/giveaways", s.allowed(s.handleGiveaways))
	mux.HandleFunc("POST /api/giveaways", s.allowed(s.handleCreateGiveaway))
	mux.HandleFunc("POST /api/giveaways/create", s.allowed(s.handleCreateGiveaway))
	mux.HandleFunc("POST /api/giveaways/{id}/cancel", s.allowed(s.handleCancelGiveaway))
	mux.HandleFunc("POST /api/giveaways/{id}/reroll", s.allowed(s.handleRerollGiveaway))
	mux.HandleFunc("GET /api/counters", s.allowed(s.handleCounters))
	mux.HandleFunc("POST /api/counters/override", s.allowed(s.handleCounterOverride))

	return mux
}

type userKey struct{}

// allowed admits only logged-in admins and crew. The user id is placed on the
// request context.
func (s *Server) allowed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.currentUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not_logged_in")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		level, _, err := s.cfg.Access.Level(ctx, userID)
		if err != nil {
			logger.Warnf("Dashboard access check for %s failed: %v", userID, err)
			writeError(w, http.StatusForbidden, "not_in_guild")
			return
		}
		if !utils.CanManage(level) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r.WithContext(context.WithValue(ctx, userKey{}, userID)))
	}
}

func (s *Server) currentUser(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	return s.sessions.parse(c.Value, s.cfg.Clock.Now())
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r)
		logger.Debugf("http %s %s -> %d in %dms", r.Method, r.URL.Path, lrw.status, time.Since(start).Milliseconds())
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
