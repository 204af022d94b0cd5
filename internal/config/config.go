package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for the TV4 Play site. Overridable through TV4PLAY_* env vars.
const (
	DefaultSiteURL   = "http://www.tv4play.se"
	DefaultPlayerURL = "http://plexapp.com/player/tv4play.php?id=%s"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; U; Intel Mac OS X 10.6; en-US; rv:1.9.2.10) Gecko/20100914 Firefox/3.6.10"

	NSVideoAPI    = "http://www.tv4.se/xml/videoapi"
	NSContentInfo = "http://www.tv4.se/xml/contentinfo"

	PluginTitle  = "TV4 Play"
	PluginPrefix = "/video/tv4play"
)

// defaultIcons maps category names to the bundled icon files.
var defaultIcons = map[string]string{
	"Aktualitet":      "icon-Aktualitet.png",
	"Hem & fritid":    "icon-HemOchFritid.png",
	"Nyheter":         "icon-Nyheter.png",
	"Nöje & humor":    "icon-NojeOchHumor.png",
	"Sport":           "icon-Sport.png",
	"Fotbollskanalen": "icon-Fotbollskanalen.png",
	"Hockeykanalen":   "icon-Hockeykanalen.png",
	"Lattjo lajban":   "icon-LattjoLajban.png",
	"Barn":            "icon-default.png",
}

// Cache backends accepted by TV4PLAY_CACHE_BACKEND.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// Config holds server, cache, upstream and mount settings.
// Load from env; call LoadEnvFile(".env") first to pick up a .env file.
type Config struct {
	Addr string // listen address for serve, e.g. :32500

	// Upstream
	SiteURL         string // e.g. http://www.tv4play.se (no trailing slash)
	PlayerURL       string // printf template taking the content id
	UserAgent       string
	HTTPTimeout     time.Duration
	RateLimit       float64 // requests per second per upstream host; 0 = unlimited
	HostConcurrency int
	AllowedHosts    []string // domains accepted in url parameters besides the site host

	// Response cache
	CacheTTL     time.Duration // short class: root catalog, listings, video pages
	CacheTTLLong time.Duration // long class: program home pages, per-view XML
	CacheBackend string        // memory | sqlite | redis
	CacheDir     string        // sqlite file lives here
	RedisURL     string
	WarmInterval time.Duration // 0 = no periodic warm of the root catalog

	// Presentation
	ResourcesDir string // icon files served at /resources/
	MoreLabel    string

	// VFS
	MountPoint      string
	MountMaxPages   int // pages of videos concatenated per cliplist directory
	MountAllowOther bool

	LogLevel  string
	LogFormat string // text | json
	SentryDSN string
}

// Load reads config from environment.
func Load() *Config {
	c := &Config{
		Addr:            getEnv("TV4PLAY_ADDR", ":32500"),
		SiteURL:         strings.TrimSuffix(getEnv("TV4PLAY_SITE_URL", DefaultSiteURL), "/"),
		PlayerURL:       getEnv("TV4PLAY_PLAYER_URL", DefaultPlayerURL),
		UserAgent:       getEnv("TV4PLAY_USER_AGENT", DefaultUserAgent),
		HTTPTimeout:     getEnvDuration("TV4PLAY_HTTP_TIMEOUT", 30*time.Second),
		RateLimit:       getEnvFloat("TV4PLAY_RATE_LIMIT", 5),
		HostConcurrency: getEnvInt("TV4PLAY_HOST_CONCURRENCY", 4),
		AllowedHosts:    getEnvList("TV4PLAY_ALLOWED_HOSTS", []string{"tv4play.se", "tv4.se"}),
		CacheTTL:        getEnvDuration("TV4PLAY_CACHE_TTL", time.Hour),
		CacheTTLLong:    getEnvDuration("TV4PLAY_CACHE_TTL_LONG", 30*24*time.Hour),
		CacheBackend:    getEnvCacheBackend("TV4PLAY_CACHE_BACKEND", CacheMemory),
		CacheDir:        getEnv("TV4PLAY_CACHE_DIR", "/var/cache/tv4play"),
		RedisURL:        getEnv("TV4PLAY_REDIS_URL", "redis://localhost:6379/0"),
		WarmInterval:    getEnvDuration("TV4PLAY_WARM_INTERVAL", 0),
		ResourcesDir:    getEnv("TV4PLAY_RESOURCES_DIR", "./resources"),
		MoreLabel:       getEnv("TV4PLAY_MORE_LABEL", "More…"),
		MountPoint:      getEnv("TV4PLAY_MOUNT", "/mnt/tv4play"),
		MountMaxPages:   getEnvInt("TV4PLAY_MOUNT_MAX_PAGES", 5),
		MountAllowOther: getEnvBool("TV4PLAY_MOUNT_ALLOW_OTHER", false),
		LogLevel:        getEnv("TV4PLAY_LOG_LEVEL", "info"),
		LogFormat:       getEnv("TV4PLAY_LOG_FORMAT", "text"),
		SentryDSN:       os.Getenv("TV4PLAY_SENTRY_DSN"),
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.HostConcurrency <= 0 {
		c.HostConcurrency = 4
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.CacheTTLLong < c.CacheTTL {
		c.CacheTTLLong = c.CacheTTL
	}
	if c.MountMaxPages <= 0 {
		c.MountMaxPages = 1
	}
	return c
}

// Site is the immutable description of the upstream site and how its
// documents are presented. Built once by Config.Site and shared read-only.
type Site struct {
	Title  string
	Prefix string

	CatalogURL    string // root category document
	ProgramHTML   string // printf template: program home page / listing fragment
	ProgramViews  string // printf template: per-program view XML
	PlayerURL     string
	NSVideoAPI    string
	NSContentInfo string

	TTL     time.Duration
	TTLLong time.Duration

	Art         string
	Icons       map[string]string // category name -> icon file; read-only
	IconDefault string
	IconMore    string
	MoreLabel   string
	ViewGroup   string

	AllowedHosts []string
}

// Site derives the immutable site description from c.
func (c *Config) Site() Site {
	return Site{
		Title:         PluginTitle,
		Prefix:        PluginPrefix,
		CatalogURL:    c.SiteURL + "/?view=xml",
		ProgramHTML:   c.SiteURL + "/%s",
		ProgramViews:  c.SiteURL + "/%s?view=xml",
		PlayerURL:     c.PlayerURL,
		NSVideoAPI:    NSVideoAPI,
		NSContentInfo: NSContentInfo,
		TTL:           c.CacheTTL,
		TTLLong:       c.CacheTTLLong,
		Art:           "art-default.png",
		Icons:         copyIcons(defaultIcons),
		IconDefault:   "icon-default.png",
		IconMore:      "icon-more.png",
		MoreLabel:     c.MoreLabel,
		ViewGroup:     "ListItems",
		AllowedHosts:  c.allowedHosts(),
	}
}

func copyIcons(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (c *Config) allowedHosts() []string {
	out := append([]string(nil), c.AllowedHosts...)
	if u, err := url.Parse(c.SiteURL); err == nil && u.Hostname() != "" {
		out = append(out, u.Hostname())
	}
	return out
}

// ProgramHTMLURL returns the HTML page for a program id.
func (s Site) ProgramHTMLURL(id string) string { return fmt.Sprintf(s.ProgramHTML, id) }

// ProgramViewsURL returns the per-view XML document for a program id.
func (s Site) ProgramViewsURL(id string) string { return fmt.Sprintf(s.ProgramViews, id) }

// PlayURL returns the external player reference for a content id.
func (s Site) PlayURL(contentID string) string { return fmt.Sprintf(s.PlayerURL, contentID) }

// Validate reports settings that make the adapter unusable.
func (c *Config) Validate() error {
	if c.SiteURL == "" {
		return fmt.Errorf("TV4PLAY_SITE_URL is empty")
	}
	if !strings.Contains(c.PlayerURL, "%s") {
		return fmt.Errorf("TV4PLAY_PLAYER_URL must contain %%s for the content id: %q", c.PlayerURL)
	}
	if c.CacheBackend == CacheRedis && c.RedisURL == "" {
		return fmt.Errorf("redis cache backend needs TV4PLAY_REDIS_URL")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(v)
		return n
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvCacheBackend returns "memory", "sqlite" or "redis"; unknown values fall back to defaultVal.
func getEnvCacheBackend(key, defaultVal string) string {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case CacheMemory, CacheSQLite, CacheRedis:
		return v
	case "mem":
		return CacheMemory
	case "sqlite3", "disk":
		return CacheSQLite
	}
	return defaultVal
}
