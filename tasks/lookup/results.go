package lookup

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"strikebot/utils"
)

const (
	// ResultsPerPage is the page size of a search reply.
	ResultsPerPage = 5
	// PagePrefix starts the custom id of search page buttons.
	PagePrefix = "zoek"

	resultsTTL = 3 * time.Minute
)

// ResultSet is one search kept for paging. Only the owner may page it.
type ResultSet struct {
	ID      string
	OwnerID string
	Query   string
	Results []Result
	Wiki    *Summary
	expires time.Time
}

// ResultSets keeps recent searches in memory until they expire.
type ResultSets struct {
	mu   sync.Mutex
	sets map[string]*ResultSet
}

func NewResultSets() *ResultSets {
	return &ResultSets{sets: make(map[string]*ResultSet)}
}

// Put stores a search and returns it with a fresh id.
func (r *ResultSets) Put(ownerID, query string, results []Result, wiki *Summary, now time.Time) *ResultSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, set := range r.sets {
		if !now.Before(set.expires) {
			delete(r.sets, id)
		}
	}
	set := &ResultSet{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Query:   query,
		Results: results,
		Wiki:    wiki,
		expires: now.Add(resultsTTL),
	}
	r.sets[set.ID] = set
	return set
}

// Get returns a search that has not expired yet.
func (r *ResultSets) Get(id string, now time.Time) (*ResultSet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sets[id]
	if !ok || !now.Before(set.expires) {
		return nil, false
	}
	return set, true
}

// Pages returns how many pages the search spans.
func (s *ResultSet) Pages() int {
	return utils.PageCount(len(s.Results), ResultsPerPage)
}

// Embed renders page (1-based, clamped) of the search.
func (s *ResultSet) Embed(page int) (*discordgo.MessageEmbed, int) {
	page = max(1, min(page, s.Pages()))
	start := (page - 1) * ResultsPerPage
	end := min(start+ResultsPerPage, len(s.Results))

	desc := fmt.Sprintf("Showing **%d-%d** of **%d** results", start+1, end, len(s.Results))
	if s.Wiki != nil {
		desc = fmt.Sprintf("**Wikipedia:** %s\n%s\n\n%s", s.Wiki.Title, s.Wiki.Extract, desc)
	}
	embed := &discordgo.MessageEmbed{
		Title:       "🔎 Search: " + s.Query,
		Description: desc,
		Color:       brandGreen,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Source: DuckDuckGo"},
	}
	for i, r := range s.Results[start:end] {
		title := r.Title
		if title == "" {
			title = "Result"
		}
		snippet := r.Snippet
		if len([]rune(snippet)) > 240 {
			snippet = truncate(snippet, 240) + "…"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  truncate(fmt.Sprintf("%d. %s", start+i+1, title), 256),
			Value: truncate(strings.TrimSpace(snippet+"\n"+r.URL), 1024),
		})
	}
	return embed, page
}

// Components returns the page buttons and, for a Wikipedia hit, a link button.
func (s *ResultSet) Components(page int) []discordgo.MessageComponent {
	components := utils.PaginationComponents(page, s.Pages(), PagePrefix+":"+s.ID)
	if s.Wiki != nil {
		components = append(components, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Open Wikipedia", Style: discordgo.LinkButton, URL: s.Wiki.URL},
			},
		})
	}
	return components
}

// ParsePageID splits a custom id built by Components into search id and page.
func ParsePageID(customID string) (string, int, bool) {
	rest, ok := strings.CutPrefix(customID, PagePrefix+":")
	if !ok {
		return "", 0, false
	}
	id, _, ok := strings.Cut(rest, ":")
	if !ok {
		return "", 0, false
	}
	page, ok := utils.ParsePage(customID, PagePrefix+":"+id)
	return id, page, ok
}

// Cooldown limits how often one member may search.
type Cooldown struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{window: window, last: make(map[string]time.Time)}
}

// Allow records a search by userID at now, or returns how long to wait.
func (c *Cooldown) Allow(userID string, now time.Time) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.last[userID]; ok {
		if wait := c.window - now.Sub(last); wait > 0 {
			return wait, false
		}
	}
	c.last[userID] = now
	return 0, true
}
