// Package config loads bot settings from config.yaml, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Discord    DiscordConfig
	Database   DatabaseConfig
	Log        LogConfig
	Moderation ModerationConfig
	Giveaway   GiveawayConfig
	Counters   CountersConfig
	Dashboard  DashboardConfig
	Lookup     LookupConfig
	Redis      RedisConfig
	Scheduler  SchedulerConfig
}

type DiscordConfig struct {
	Token        string
	AppID        string   `mapstructure:"app_id"`
	GuildID      string   `mapstructure:"guild_id"`
	AdminRoleIDs []string `mapstructure:"admin_role_ids"`
	CrewRoleIDs  []string `mapstructure:"crew_role_ids"`
	Timezone     string
}

type DatabaseConfig struct {
	Path string
}

type LogConfig struct {
	Level  string
	Output string
}

// ModerationConfig drives the strike ladder. Role IDs win over role names when set.
type ModerationConfig struct {
	ModLogChannelID   string        `mapstructure:"modlog_channel_id"`
	Strike1Role       string        `mapstructure:"strike1_role"`
	Strike2Role       string        `mapstructure:"strike2_role"`
	Strike3Role       string        `mapstructure:"strike3_role"`
	MutedRole         string        `mapstructure:"muted_role"`
	Strike1RoleID     string        `mapstructure:"strike1_role_id"`
	Strike2RoleID     string        `mapstructure:"strike2_role_id"`
	Strike3RoleID     string        `mapstructure:"strike3_role_id"`
	MutedRoleID       string        `mapstructure:"muted_role_id"`
	PreserveRoleIDs   []string      `mapstructure:"preserve_role_ids"`
	PreserveRoleNames []string      `mapstructure:"preserve_role_names"`
	HiddenCategoryIDs []string      `mapstructure:"hidden_category_ids"`
	BanWebhookURL     string        `mapstructure:"ban_webhook_url"`
	Strike1Duration   time.Duration `mapstructure:"strike1_duration"`
	Strike2Duration   time.Duration `mapstructure:"strike2_duration"`
}

type GiveawayConfig struct {
	MinLevelRoleID string `mapstructure:"min_level_role_id"`
	WinnerRoleID   string `mapstructure:"winner_role_id"`
	Color          string
	Footer         string
}

type CountersConfig struct {
	Enabled       bool
	UpdateSeconds int               `mapstructure:"update_seconds"`
	CategoryName  string            `mapstructure:"category_name"`
	Templates     map[string]string `mapstructure:"templates"`
	HTTPTimeout   time.Duration     `mapstructure:"http_timeout"`
	Twitch        TwitchConfig
	Instagram     InstagramConfig
	TikTok        TikTokConfig `mapstructure:"tiktok"`
}

type TwitchConfig struct {
	ClientID         string `mapstructure:"client_id"`
	ClientSecret     string `mapstructure:"client_secret"`
	BroadcasterID    string `mapstructure:"broadcaster_id"`
	BroadcasterLogin string `mapstructure:"broadcaster_login"`
	URL              string
	JSONKey          string `mapstructure:"json_key"`
	ScrapeURL        string `mapstructure:"scrape_url"`
}

type InstagramConfig struct {
	UserID       string `mapstructure:"user_id"`
	AccessToken  string `mapstructure:"access_token"`
	GraphVersion string `mapstructure:"graph_version"`
	ScrapeURL    string `mapstructure:"scrape_url"`
}

type TikTokConfig struct {
	AccessToken string `mapstructure:"access_token"`
	ScrapeURL   string `mapstructure:"scrape_url"`
}

type DashboardConfig struct {
	Enabled       bool
	Addr          string
	PublicBaseURL string        `mapstructure:"public_base_url"`
	ClientSecret  string        `mapstructure:"client_secret"`
	SessionSecret string        `mapstructure:"session_secret"`
	SessionMaxAge time.Duration `mapstructure:"session_max_age"`
}

// LookupConfig drives /weer and /zoek.
type LookupConfig struct {
	Enabled        bool
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	SearchCooldown time.Duration `mapstructure:"search_cooldown"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SchedulerConfig struct {
	MuteInterval     time.Duration `mapstructure:"mute_interval"`
	GiveawayInterval time.Duration `mapstructure:"giveaway_interval"`
}

// legacyEnv maps keys to the flat environment names older deployments use.
var legacyEnv = map[string][]string{
	"discord.token":                   {"DISCORD_TOKEN", "BOT_TOKEN"},
	"discord.app_id":                  {"DISCORD_APP_ID", "APP_ID"},
	"discord.guild_id":                {"DISCORD_GUILD_ID", "GUILD_ID"},
	"discord.crew_role_ids":           {"DISCORD_CREW_ROLE_IDS", "B_CREW_ROLE_ID"},
	"moderation.modlog_channel_id":    {"MODERATION_MODLOG_CHANNEL_ID", "MODLOG_CHANNEL_ID"},
	"moderation.preserve_role_ids":    {"MODERATION_PRESERVE_ROLE_IDS", "PRESERVE_ROLE_IDS"},
	"moderation.preserve_role_names":  {"MODERATION_PRESERVE_ROLE_NAMES", "PRESERVE_ROLE_NAMES"},
	"moderation.hidden_category_ids":  {"MODERATION_HIDDEN_CATEGORY_IDS", "MUTED_HIDDEN_CATEGORY_IDS"},
	"moderation.ban_webhook_url":      {"MODERATION_BAN_WEBHOOK_URL", "TWITCH_BAN_WEBHOOK_URL"},
	"giveaway.min_level_role_id":      {"GIVEAWAY_MIN_LEVEL_ROLE_ID", "MIN_LEVEL_ROLE_ID"},
	"giveaway.winner_role_id":         {"GIVEAWAY_WINNER_ROLE_ID", "WINNER_ROLE_ID"},
	"counters.enabled":                {"COUNTERS_ENABLED"},
	"counters.update_seconds":         {"COUNTERS_UPDATE_SECONDS", "COUNTER_UPDATE_SECONDS"},
	"counters.twitch.client_id":       {"COUNTERS_TWITCH_CLIENT_ID", "TWITCH_CLIENT_ID"},
	"counters.twitch.client_secret":   {"COUNTERS_TWITCH_CLIENT_SECRET", "TWITCH_CLIENT_SECRET"},
	"counters.twitch.broadcaster_id":  {"COUNTERS_TWITCH_BROADCASTER_ID", "TWITCH_BROADCASTER_ID"},
	"counters.instagram.access_token": {"COUNTERS_INSTAGRAM_ACCESS_TOKEN", "INSTAGRAM_ACCESS_TOKEN"},
	"counters.tiktok.access_token":    {"COUNTERS_TIKTOK_ACCESS_TOKEN", "TIKTOK_ACCESS_TOKEN"},
	"dashboard.client_secret":         {"DASHBOARD_CLIENT_SECRET", "DISCORD_CLIENT_SECRET"},
	"dashboard.session_secret":        {"DASHBOARD_SESSION_SECRET", "SESSION_SECRET"},
}

// Load reads configuration. Priority: environment > config file > defaults.
// path may be empty, in which case config.yaml is searched in the usual places.
func Load(path string) (*Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.app_id", "")
	v.SetDefault("discord.guild_id", "")
	v.SetDefault("discord.admin_role_ids", []string{})
	v.SetDefault("discord.crew_role_ids", []string{})
	v.SetDefault("discord.timezone", "Europe/Amsterdam")

	v.SetDefault("database.path", "data/strikebot.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("moderation.modlog_channel_id", "")
	v.SetDefault("moderation.strike1_role", "Strike 1")
	v.SetDefault("moderation.strike2_role", "Strike 2")
	v.SetDefault("moderation.strike3_role", "Strike 3")
	v.SetDefault("moderation.muted_role", "Muted")
	v.SetDefault("moderation.strike1_role_id", "")
	v.SetDefault("moderation.strike2_role_id", "")
	v.SetDefault("moderation.strike3_role_id", "")
	v.SetDefault("moderation.muted_role_id", "")
	v.SetDefault("moderation.preserve_role_ids", []string{})
	v.SetDefault("moderation.preserve_role_names", []string{"Member"})
	v.SetDefault("moderation.hidden_category_ids", []string{})
	v.SetDefault("moderation.ban_webhook_url", "")
	v.SetDefault("moderation.strike1_duration", 24*time.Hour)
	v.SetDefault("moderation.strike2_duration", 7*24*time.Hour)

	v.SetDefault("giveaway.min_level_role_id", "")
	v.SetDefault("giveaway.winner_role_id", "")
	v.SetDefault("giveaway.color", "#2ECC71")
	v.SetDefault("giveaway.footer", "Giveaway")

	v.SetDefault("counters.enabled", false)
	v.SetDefault("counters.update_seconds", 300)
	v.SetDefault("counters.category_name", "📊 Stats")
	v.SetDefault("counters.http_timeout", 15*time.Second)
	v.SetDefault("counters.templates.members", "👥 Members: {count}")
	v.SetDefault("counters.templates.twitch", "🟣 Twitch: {count}")
	v.SetDefault("counters.templates.instagram", "📸 Instagram: {count}")
	v.SetDefault("counters.templates.tiktok", "🎵 TikTok: {count}")
	v.SetDefault("counters.twitch.client_id", "")
	v.SetDefault("counters.twitch.client_secret", "")
	v.SetDefault("counters.twitch.broadcaster_id", "")
	v.SetDefault("counters.twitch.broadcaster_login", "")
	v.SetDefault("counters.twitch.url", "")
	v.SetDefault("counters.twitch.json_key", "followers")
	v.SetDefault("counters.twitch.scrape_url", "")
	v.SetDefault("counters.instagram.user_id", "")
	v.SetDefault("counters.instagram.access_token", "")
	v.SetDefault("counters.instagram.graph_version", "v19.0")
	v.SetDefault("counters.instagram.scrape_url", "")
	v.SetDefault("counters.tiktok.access_token", "")
	v.SetDefault("counters.tiktok.scrape_url", "")

	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.addr", ":8080")
	v.SetDefault("dashboard.public_base_url", "http://localhost:8080")
	v.SetDefault("dashboard.client_secret", "")
	v.SetDefault("dashboard.session_secret", "")
	v.SetDefault("dashboard.session_max_age", 7*24*time.Hour)

	v.SetDefault("lookup.enabled", true)
	v.SetDefault("lookup.http_timeout", 10*time.Second)
	v.SetDefault("lookup.search_cooldown", 30*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("scheduler.mute_interval", 10*time.Second)
	v.SetDefault("scheduler.giveaway_interval", 20*time.Second)
}

func (c *Config) validate() error {
	if c.Discord.Token == "" {
		return errors.New("discord.token is required")
	}
	if c.Discord.GuildID == "" {
		return errors.New("discord.guild_id is required")
	}
	if _, err := time.LoadLocation(c.Discord.Timezone); err != nil {
		return fmt.Errorf("discord.timezone: %w", err)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Moderation.Strike1Duration <= 0 || c.Moderation.Strike2Duration <= 0 {
		return errors.New("moderation strike durations must be positive")
	}
	if c.Counters.UpdateSeconds < 60 {
		c.Counters.UpdateSeconds = 60
	}
	if c.Counters.HTTPTimeout <= 0 {
		c.Counters.HTTPTimeout = 15 * time.Second
	}
	if c.Scheduler.MuteInterval <= 0 {
		c.Scheduler.MuteInterval = 10 * time.Second
	}
	if c.Scheduler.GiveawayInterval <= 0 {
		c.Scheduler.GiveawayInterval = 20 * time.Second
	}
	if c.Lookup.HTTPTimeout <= 0 {
		c.Lookup.HTTPTimeout = 10 * time.Second
	}
	if c.Lookup.SearchCooldown < 0 {
		c.Lookup.SearchCooldown = 0
	}
	if c.Dashboard.Enabled {
		if c.Dashboard.SessionSecret == "" {
			return errors.New("dashboard.session_secret is required when the dashboard is enabled")
		}
		if c.Dashboard.ClientSecret == "" || c.Discord.AppID == "" {
			return errors.New("dashboard needs discord.app_id and dashboard.client_secret for OAuth2 login")
		}
	}
	return nil
}

// Location returns the configured time zone, used to interpret giveaway end times.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Discord.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CounterInterval returns the counter refresh period.
func (c *Config) CounterInterval() time.Duration {
	return time.Duration(c.Counters.UpdateSeconds) * time.Second
}
