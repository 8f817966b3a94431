package dashboard

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"strikebot/discipline"
	"strikebot/giveaway"
	"strikebot/model"
	"strikebot/utils"
	"strikebot/utils/logger"
)

const (
	humanLayout     = "2006-01-02 15:04"
	recentGiveaways = 20
)

type meResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Level    string `json:"level"`
	Allowed  bool   `json:"allowed"`
}

// handleMe answers null for anonymous visitors so the frontend can show a login button.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.currentUser(r)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	me := meResponse{UserID: userID, Username: userID, Level: utils.UserPermission}
	level, member, err := s.cfg.Access.Level(ctx, userID)
	if err == nil {
		me.Level = level
		me.Allowed = utils.CanManage(level)
	}
	if member != nil && member.User != nil {
		me.Username = member.User.Username
	}
	writeJSON(w, http.StatusOK, me)
}

type statusResponse struct {
	utils.SystemInfo
	DatabaseBytes int64  `json:"database_bytes"`
	Uptime        string `json:"uptime"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{SystemInfo: utils.CollectSystemInfo(r.Context()), Uptime: "-"}
	if size, err := s.cfg.Store.Size(r.Context()); err == nil {
		resp.DatabaseBytes = size
	}
	if s.cfg.StartedAt != nil {
		if started := s.cfg.StartedAt(); !started.IsZero() {
			resp.Uptime = s.cfg.Clock.Now().Sub(started).Truncate(time.Second).String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type channelItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.cfg.Access.TextChannels(r.Context())
	if err != nil {
		s.internalError(w, "list channels", err)
		return
	}
	items := make([]channelItem, 0, len(channels))
	for _, c := range channels {
		items = append(items, channelItem{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, itemsResponse[channelItem]{Items: items})
}

type warnItem struct {
	UserID    string `json:"user_id"`
	Warns     int    `json:"warns"`
	Strikes   int    `json:"strikes"`
	UpdatedAt int64  `json:"updated_at"`
}

func (s *Server) handleWarns(w http.ResponseWriter, r *http.Request) {
	records, err := s.cfg.Store.ListDiscipline(r.Context(), s.cfg.GuildID)
	if err != nil {
		s.internalError(w, "list warns", err)
		return
	}
	items := make([]warnItem, 0, len(records))
	for _, rec := range records {
		if rec.Warns <= 0 {
			continue
		}
		items = append(items, warnItem{UserID: rec.UserID, Warns: rec.Warns, Strikes: rec.Strikes, UpdatedAt: rec.UpdatedAt.Unix()})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Warns > items[j].Warns })
	writeJSON(w, http.StatusOK, itemsResponse[warnItem]{Items: items})
}

type userRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) decodeUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return "", false
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if _, err := strconv.ParseUint(req.UserID, 10, 64); err != nil {
		writeError(w, http.StatusBadRequest, "user_id must be a snowflake")
		return "", false
	}
	return req.UserID, true
}

func (s *Server) handleClearWarns(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.decodeUser(w, r)
	if !ok {
		return
	}
	err := s.cfg.Moderation.DeleteWarn(r.Context(), &discipline.WarnInput{
		GuildID:     s.cfg.GuildID,
		ModeratorID: userFrom(r.Context()),
		TargetID:    userID,
		Reason:      "Cleared from the dashboard",
	})
	if err != nil {
		s.domainError(w, "clear warns", err)
		return
	}
	writeOK(w)
}

type muteItem struct {
	UserID        string `json:"user_id"`
	UnmuteAt      int64  `json:"unmute_at"`
	UnmuteAtHuman string `json:"unmute_at_human"`
	RestoredRoles int    `json:"restored_roles"`
}

func (s *Server) handleMutes(w http.ResponseWriter, r *http.Request) {
	mutes, err := s.cfg.Store.ListMutes(r.Context(), s.cfg.GuildID)
	if err != nil {
		s.internalError(w, "list mutes", err)
		return
	}
	items := make([]muteItem, 0, len(mutes))
	for _, m := range mutes {
		items = append(items, muteItem{
			UserID:        m.UserID,
			UnmuteAt:      m.UnmuteAt.Unix(),
			UnmuteAtHuman: m.UnmuteAt.In(s.cfg.Location).Format(humanLayout),
			RestoredRoles: len(m.RoleIDs),
		})
	}
	writeJSON(w, http.StatusOK, itemsResponse[muteItem]{Items: items})
}

func (s *Server) handleUnmute(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.decodeUser(w, r)
	if !ok {
		return
	}
	if !s.cfg.Moderation.Unmute(r.Context(), s.cfg.GuildID, userID) {
		writeError(w, http.StatusBadRequest, "unmute failed")
		return
	}
	writeOK(w)
}

type giveawayItem struct {
	ID         int64    `json:"id"`
	Prize      string   `json:"prize"`
	ChannelID  string   `json:"channel_id"`
	EndAt      int64    `json:"end_at"`
	EndAtHuman string   `json:"end_at_human"`
	Ended      bool     `json:"ended"`
	Entries    int      `json:"entries"`
	Winners    []string `json:"winners"`
}

func (s *Server) handleGiveaways(w http.ResponseWriter, r *http.Request) {
	rows, err := s.cfg.Store.RecentGiveaways(r.Context(), s.cfg.GuildID, recentGiveaways)
	if err != nil {
		s.internalError(w, "list giveaways", err)
		return
	}
	items := make([]giveawayItem, 0, len(rows))
	for _, g := range rows {
		winners := g.WinnerIDs
		if winners == nil {
			winners = []string{}
		}
		items = append(items, giveawayItem{
			ID:         g.ID,
			Prize:      g.Prize,
			ChannelID:  g.ChannelID,
			EndAt:      g.EndAt.Unix(),
			EndAtHuman: g.EndAt.In(s.cfg.Location).Format(humanLayout),
			Ended:      g.Ended,
			Entries:    g.EntryCount,
			Winners:    winners,
		})
	}
	writeJSON(w, http.StatusOK, itemsResponse[giveawayItem]{Items: items})
}

type createGiveawayRequest struct {
	ChannelID       string `json:"channel_id"`
	Prize           string `json:"prize"`
	Description     string `json:"description"`
	End             string `json:"end"`
	Winners         int    `json:"winners"`
	MaxParticipants int    `json:"max_participants"`
	ThumbnailURL    string `json:"thumbnail_url"`
}

func (s *Server) handleCreateGiveaway(w http.ResponseWriter, r *http.Request) {
	var req createGiveawayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	endAt, err := utils.ParseEndTime(req.End, s.cfg.Clock.Now(), s.cfg.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end time, use 30m, 2h, 1d, HH:MM or YYYY-MM-DD HH:MM")
		return
	}
	g, err := s.cfg.Giveaways.Create(r.Context(), &giveaway.CreateInput{
		GuildID:         s.cfg.GuildID,
		ChannelID:       strings.TrimSpace(req.ChannelID),
		CreatorID:       userFrom(r.Context()),
		Prize:           req.Prize,
		Description:     req.Description,
		ThumbnailURL:    req.ThumbnailURL,
		EndAt:           endAt,
		MaxParticipants: req.MaxParticipants,
		WinnersCount:    req.Winners,
	})
	if err != nil {
		s.domainError(w, "create giveaway", err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		OK bool  `json:"ok"`
		ID int64 `json:"id"`
	}{OK: true, ID: g.ID})
}

func giveawayID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleCancelGiveaway(w http.ResponseWriter, r *http.Request) {
	id, ok := giveawayID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid giveaway id")
		return
	}
	if err := s.cfg.Giveaways.Cancel(r.Context(), id, userFrom(r.Context())); err != nil {
		s.domainError(w, "cancel giveaway", err)
		return
	}
	writeOK(w)
}

func (s *Server) handleRerollGiveaway(w http.ResponseWriter, r *http.Request) {
	id, ok := giveawayID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid giveaway id")
		return
	}
	winners, err := s.cfg.Giveaways.Reroll(r.Context(), id, userFrom(r.Context()))
	if err != nil {
		s.domainError(w, "reroll giveaway", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OK      bool     `json:"ok"`
		Winners []string `json:"winners"`
	}{OK: true, Winners: winners})
}

func (s *Server) handleCounters(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Counters == nil {
		writeError(w, http.StatusNotFound, "counters disabled")
		return
	}
	states, err := s.cfg.Counters.States(r.Context())
	if err != nil {
		s.internalError(w, "counter states", err)
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse[model.CounterState]{Items: states})
}

type overrideRequest struct {
	Kind  string `json:"kind"`
	Value *int64 `json:"value"`
}

func (s *Server) handleCounterOverride(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Counters == nil {
		writeError(w, http.StatusNotFound, "counters disabled")
		return
	}
	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	kind := model.CounterKind(req.Kind)
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown counter kind")
		return
	}
	if req.Value != nil && *req.Value < 0 {
		writeError(w, http.StatusBadRequest, "value must not be negative")
		return
	}
	if err := s.cfg.Counters.SetOverride(r.Context(), kind, req.Value); err != nil {
		s.internalError(w, "counter override", err)
		return
	}
	writeOK(w)
}

// domainError maps engine errors onto status codes. Unknown errors are logged
// and hidden from the client.
func (s *Server) domainError(w http.ResponseWriter, op string, err error) {
	var de discipline.Error
	var ge giveaway.Error
	switch {
	case errors.Is(err, giveaway.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, giveaway.ErrGiveawayNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ge), errors.As(err, &de):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.internalError(w, op, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	logger.Errorf("Dashboard %s failed: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
