package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tabrown76/Aramark-Scripts/internal/pricelevel"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
)

// Automation names used in config, routes and history.
const (
	AutomationMenus  = "menus"
	AutomationLevels = "levels"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Browser   BrowserConfig    `yaml:"browser"`
	Menus     MenusConfig      `yaml:"menus"`
	Levels    LevelsConfig     `yaml:"levels"`
	Pricing   PricingConfig    `yaml:"pricing"`
	Schedules []ScheduleConfig `yaml:"schedules"`
	Database  DatabaseConfig   `yaml:"database"`
	Log       LogConfig        `yaml:"log"`
	DryRun    string           `yaml:"dryRun"`
	Notify    string           `yaml:"notify"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type BrowserConfig struct {
	Driver         string `yaml:"driver"`
	Headless       string `yaml:"headless"`
	NoSandbox      string `yaml:"noSandbox"`
	ExecutablePath string `yaml:"executablePath"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type MenusConfig struct {
	AdminURL            string `yaml:"adminURL"`
	Username            string `yaml:"username"`
	Password            string `yaml:"password"`
	SettleDelayMs       int    `yaml:"settleDelayMs"`
	TabDelayMs          int    `yaml:"tabDelayMs"`
	SaveDelayMs         int    `yaml:"saveDelayMs"`
	TableTimeoutSeconds int    `yaml:"tableTimeoutSeconds"`
}

type LevelsConfig struct {
	BaseURL               string `yaml:"baseURL"`
	Username              string `yaml:"username"`
	Password              string `yaml:"password"`
	SearchText            string `yaml:"searchText"`
	CaptchaTimeoutSeconds int    `yaml:"captchaTimeoutSeconds"`
	SearchTimeoutSeconds  int    `yaml:"searchTimeoutSeconds"`
	Concert               string `yaml:"concert"`
	Default               string `yaml:"default"`
	SaveSelector          string `yaml:"saveSelector"`
}

// PricingConfig is the YAML form of pricing.Rules. Amounts stay strings so
// they are parsed as decimals, never floats.
type PricingConfig struct {
	ReferenceItem         string            `yaml:"referenceItem"`
	SurgeReferencePrice   string            `yaml:"surgeReferencePrice"`
	NormalReferencePrice  string            `yaml:"normalReferencePrice"`
	Step                  string            `yaml:"step"`
	LargeStep             string            `yaml:"largeStep"`
	Pinned                map[string]string `yaml:"pinned"`
	DoubleStep            []string          `yaml:"doubleStep"`
	CategoryMarkers       []string          `yaml:"categoryMarkers"`
	SpecialCategoryMarker *string           `yaml:"specialCategoryMarker"`
}

type ScheduleConfig struct {
	Name       string `yaml:"name"`
	Cron       string `yaml:"cron"`
	Automation string `yaml:"automation"`
	Concert    bool   `yaml:"concert"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings. Pricing collections are left nil
// and filled after decoding so YAML can replace them instead of merging.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 3000},
		Browser: BrowserConfig{
			Driver:         "chromedp",
			Headless:       "false",
			NoSandbox:      "false",
			TimeoutSeconds: 30,
		},
		Menus: MenusConfig{
			AdminURL:            "https://jpjmenus.spectrumintegrators.com/admin/#",
			SettleDelayMs:       1000,
			TabDelayMs:          500,
			SaveDelayMs:         1000,
			TableTimeoutSeconds: 5,
		},
		Levels: LevelsConfig{
			BaseURL:               "https://connect.appetizeapp.com",
			SearchText:            "JPJ",
			CaptchaTimeoutSeconds: 60,
			SearchTimeoutSeconds:  5,
			Concert:               pricelevel.DefaultLevels().Concert,
			Default:               pricelevel.DefaultLevels().Default,
		},
		Database: DatabaseConfig{Path: ""},
		Log:      LogConfig{Level: "info", Format: "text"},
		DryRun:   "false",
		Notify:   "false",
	}
}

// envRef matches ${NAME}. Bare $ is left alone because prices carry it.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envRef.FindStringSubmatch(m)[1])
	})
}

// LoadFromBytes loads configuration from YAML bytes with environment variable expansion
func LoadFromBytes(data []byte) (Config, error) {
	return LoadOver(Default(), data)
}

// LoadOver decodes data on top of base. Keys absent from data keep the base
// value. Pricing maps and lists given in data replace the base ones whole.
func LoadOver(base Config, data []byte) (Config, error) {
	c := base
	c.Pricing.Pinned = nil
	c.Pricing.DoubleStep = nil
	c.Pricing.CategoryMarkers = nil
	c.Pricing.SpecialCategoryMarker = nil
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &c); err != nil {
		return base, fmt.Errorf("parse config: %w", err)
	}
	if c.Pricing.Pinned == nil {
		c.Pricing.Pinned = base.Pricing.Pinned
	}
	if c.Pricing.DoubleStep == nil {
		c.Pricing.DoubleStep = base.Pricing.DoubleStep
	}
	if c.Pricing.CategoryMarkers == nil {
		c.Pricing.CategoryMarkers = base.Pricing.CategoryMarkers
	}
	if c.Pricing.SpecialCategoryMarker == nil {
		c.Pricing.SpecialCategoryMarker = base.Pricing.SpecialCategoryMarker
	}
	c.Pricing.fillDefaults()
	return c, nil
}

// LoadFile loads a config file from disk.
func LoadFile(path string) (Config, error) {
	return LoadFileOver(Default(), path)
}

// LoadFileOver loads a config file from disk on top of base.
func LoadFileOver(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadOver(base, data)
}

func (p *PricingConfig) fillDefaults() {
	d := pricing.DefaultRules()
	if p.ReferenceItem == "" {
		p.ReferenceItem = d.ReferenceItem
	}
	if p.SurgeReferencePrice == "" {
		p.SurgeReferencePrice = d.SurgeReferencePrice.String()
	}
	if p.NormalReferencePrice == "" {
		p.NormalReferencePrice = d.NormalReferencePrice.String()
	}
	if p.Step == "" {
		p.Step = d.Step.String()
	}
	if p.LargeStep == "" {
		p.LargeStep = d.LargeStep.String()
	}
	if p.Pinned == nil {
		p.Pinned = d.Pinned
	}
	if p.DoubleStep == nil {
		p.DoubleStep = d.DoubleStep
	}
	if p.CategoryMarkers == nil {
		p.CategoryMarkers = d.CategoryMarkers
	}
	if p.SpecialCategoryMarker == nil {
		marker := d.SpecialCategoryMarker
		p.SpecialCategoryMarker = &marker
	}
}

// Rules converts the pricing section into validated engine rules.
func (p PricingConfig) Rules() (pricing.Rules, error) {
	p.fillDefaults()

	amounts := map[string]string{
		"surgeReferencePrice":  p.SurgeReferencePrice,
		"normalReferencePrice": p.NormalReferencePrice,
		"step":                 p.Step,
		"largeStep":            p.LargeStep,
	}
	parsed := make(map[string]decimal.Decimal, len(amounts))
	for key, raw := range amounts {
		d, err := pricing.ParsePrice(raw)
		if err != nil {
			return pricing.Rules{}, fmt.Errorf("pricing.%s: %w", key, err)
		}
		parsed[key] = d
	}

	r := pricing.Rules{
		ReferenceItem:         p.ReferenceItem,
		SurgeReferencePrice:   parsed["surgeReferencePrice"],
		NormalReferencePrice:  parsed["normalReferencePrice"],
		Step:                  parsed["step"],
		LargeStep:             parsed["largeStep"],
		Pinned:                p.Pinned,
		DoubleStep:            p.DoubleStep,
		CategoryMarkers:       p.CategoryMarkers,
		SpecialCategoryMarker: *p.SpecialCategoryMarker,
	}
	if err := r.Validate(); err != nil {
		return pricing.Rules{}, err
	}
	return r, nil
}

// Validate checks the settings a run cannot start without.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Browser.Driver {
	case "chromedp", "playwright":
	default:
		return fmt.Errorf("browser.driver %q: want chromedp or playwright", c.Browser.Driver)
	}
	if err := absoluteURL("menus.adminURL", c.Menus.AdminURL); err != nil {
		return err
	}
	if err := absoluteURL("levels.baseURL", c.Levels.BaseURL); err != nil {
		return err
	}
	if c.Levels.Concert == "" || c.Levels.Default == "" || c.Levels.Concert == c.Levels.Default {
		return fmt.Errorf("levels.concert and levels.default must be set and differ")
	}
	if _, err := c.Pricing.Rules(); err != nil {
		return err
	}
	return ValidateSchedules(c.Schedules)
}

func absoluteURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute URL", field, raw)
	}
	return nil
}

// LevelCodes returns the configured price-level codes.
func (c Config) LevelCodes() pricelevel.Levels {
	return pricelevel.Levels{Concert: c.Levels.Concert, Default: c.Levels.Default}
}

// parseBool parses a string as boolean with a default value.
// Accepts: "true", "1", "yes" as true; empty or other values return default.
func parseBool(s string, defaultVal bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return defaultVal
	}
	return s == "true" || s == "1" || s == "yes"
}

func (c Config) IsHeadless() bool {
	return parseBool(c.Browser.Headless, false)
}

func (c Config) IsNoSandbox() bool {
	return parseBool(c.Browser.NoSandbox, false)
}

func (c Config) IsDryRun() bool {
	return parseBool(c.DryRun, false)
}

// IsNotify reports whether scheduled runs raise a desktop notification.
func (c Config) IsNotify() bool {
	return parseBool(c.Notify, false)
}

func (c Config) BrowserTimeout() time.Duration {
	return seconds(c.Browser.TimeoutSeconds, 30)
}

func (m MenusConfig) SettleDelay() time.Duration { return millis(m.SettleDelayMs) }
func (m MenusConfig) TabDelay() time.Duration    { return millis(m.TabDelayMs) }
func (m MenusConfig) SaveDelay() time.Duration   { return millis(m.SaveDelayMs) }
func (m MenusConfig) TableTimeout() time.Duration {
	return seconds(m.TableTimeoutSeconds, 5)
}

func (l LevelsConfig) CaptchaTimeout() time.Duration { return seconds(l.CaptchaTimeoutSeconds, 60) }
func (l LevelsConfig) SearchTimeout() time.Duration  { return seconds(l.SearchTimeoutSeconds, 5) }

func millis(ms int) time.Duration {
	if ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func seconds(s, def int) time.Duration {
	if s <= 0 {
		s = def
	}
	return time.Duration(s) * time.Second
}
