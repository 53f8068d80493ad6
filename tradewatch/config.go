package tradewatch

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/tortaapp/tradewatch/tradewatch/api"
	"github.com/tortaapp/tradewatch/tradewatch/database"
	"github.com/tortaapp/tradewatch/tradewatch/notify"
	"github.com/tortaapp/tradewatch/tradewatch/pricing"
	"github.com/tortaapp/tradewatch/tradewatch/services"
	"github.com/tortaapp/tradewatch/tradewatch/storage"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	if err = toml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	applyEnvOverrides(cfg)

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type Config struct {
	Log       LogConfig         `toml:"log"`
	DB        database.DBConfig `toml:"db"`
	Engine    EngineConfig      `toml:"engine"`
	Pricing   PricingConfig     `toml:"pricing"`
	Directory DirectoryConfig   `toml:"directory"`
	Storage   storage.Config    `toml:"storage"`
	Notify    notify.Config     `toml:"notify"`
	API       api.Config        `toml:"api"`
	Schedule  ScheduleConfig    `toml:"schedule"`
}

type LogConfig struct {
	Level   string   `toml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Skip    []string `toml:"skip"`
	NoColor bool     `toml:"no_color"`
}

// EngineConfig holds every tunable constant of the analysis core. It is
// read once at startup and handed to the components by value.
type EngineConfig struct {
	HalfLife         Duration `toml:"half_life"`
	IQRMultiplier    float64  `toml:"iqr_multiplier" validate:"gt=0"`
	MinIQRSample     int      `toml:"min_iqr_sample" validate:"gte=1"`
	BaseQuality      float64  `toml:"base_quality" validate:"gt=0,lte=100"`
	MinConfidence    float64  `toml:"min_confidence" validate:"gte=0,lte=1"`
	EvidenceCooldown Duration `toml:"evidence_cooldown"`
	PersistDebounce  Duration `toml:"persist_debounce"`
	Retention        Duration `toml:"retention"`
	ListingWindow    Duration `toml:"listing_window"`
	ReportCache      Duration `toml:"report_cache"`
}

func DefaultEngineConfig() EngineConfig {
	pc := pricing.DefaultConfig()
	sc := services.DefaultConfig()
	return EngineConfig{
		HalfLife:         Duration{pc.HalfLife},
		IQRMultiplier:    pc.IQRMultiplier,
		MinIQRSample:     pc.MinIQRSample,
		BaseQuality:      pc.BaseQuality,
		MinConfidence:    sc.MinConfidence,
		EvidenceCooldown: Duration{sc.EvidenceCooldown},
		PersistDebounce:  Duration{3 * time.Second},
		Retention:        Duration{sc.Retention},
		ListingWindow:    Duration{sc.ListingWindow},
		ReportCache:      Duration{10 * time.Minute},
	}
}

func (e EngineConfig) Pricing() pricing.Config {
	return pricing.Config{
		HalfLife:      e.HalfLife.Duration,
		IQRMultiplier: e.IQRMultiplier,
		MinIQRSample:  e.MinIQRSample,
		BaseQuality:   e.BaseQuality,
	}
}

func (e EngineConfig) Services(duplicateTTL time.Duration) services.Config {
	cfg := services.DefaultConfig()
	cfg.MinConfidence = e.MinConfidence
	cfg.EvidenceCooldown = e.EvidenceCooldown.Duration
	cfg.Retention = e.Retention.Duration
	cfg.ListingWindow = e.ListingWindow.Duration
	if duplicateTTL > 0 {
		cfg.DuplicateTTL = duplicateTTL
	}
	return cfg
}

func (e EngineConfig) validate() error {
	durations := map[string]Duration{
		"half_life":         e.HalfLife,
		"evidence_cooldown": e.EvidenceCooldown,
		"persist_debounce":  e.PersistDebounce,
		"retention":         e.Retention,
		"listing_window":    e.ListingWindow,
	}
	for name, d := range durations {
		if d.Duration <= 0 {
			return fmt.Errorf("engine.%s must be positive, got %s", name, d)
		}
	}
	if e.ListingWindow.Duration > e.Retention.Duration {
		return fmt.Errorf("engine.listing_window (%s) exceeds engine.retention (%s)", e.ListingWindow, e.Retention)
	}
	return nil
}

// PricingConfig selects the normalization table: a separate TOML file, an
// inline table, or the built-in one.
type PricingConfig struct {
	Table     string             `toml:"table"`
	Exponents map[string]float64 `toml:"exponents"`
	Materials map[string]float64 `toml:"materials"`
}

func (p PricingConfig) LoadTable() (pricing.Table, error) {
	if p.Table != "" {
		return pricing.LoadTable(p.Table)
	}
	if len(p.Exponents) == 0 && len(p.Materials) == 0 {
		return pricing.DefaultTable(), nil
	}
	t := pricing.Table{Exponents: p.Exponents, Materials: p.Materials}
	if err := t.Validate(); err != nil {
		return pricing.Table{}, fmt.Errorf("invalid [pricing] table: %w", err)
	}
	return t, nil
}

type DirectoryConfig struct {
	DefaultServer  string   `toml:"default_server"`
	Timezone       string   `toml:"timezone"`
	DuplicateTTL   Duration `toml:"duplicate_ttl"`
	ResolverCache  int      `toml:"resolver_cache" validate:"gte=0"`
	TradeRetention Duration `toml:"trade_retention"`
}

// Location returns the zone chat log timestamps are written in.
func (d DirectoryConfig) Location() (*time.Location, error) {
	if d.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid directory.timezone: %w", err)
	}
	return loc, nil
}

type ScheduleConfig struct {
	Report  string `toml:"report"`
	Cleanup string `toml:"cleanup"`
}

func (s ScheduleConfig) validate() error {
	for name, spec := range map[string]string{"report": s.Report, "cleanup": s.Cleanup} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid schedule.%s %q: %w", name, spec, err)
		}
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info"},
		DB:     database.DBConfig{Port: 5432, PoolSize: 10},
		Engine: DefaultEngineConfig(),
		Directory: DirectoryConfig{
			DuplicateTTL:   Duration{5 * time.Minute},
			ResolverCache:  10000,
			TradeRetention: Duration{180 * 24 * time.Hour},
		},
		Storage: storage.Config{Backend: storage.BackendFile, Path: "data/service_profiles.json"},
		Notify:  notify.Config{PerMinute: 10},
		API:     api.DefaultConfig(),
		Schedule: ScheduleConfig{
			Report:  "0 5 * * *",
			Cleanup: "30 5 * * *",
		},
	}
}

// Validate checks struct tags first, then the rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Engine.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Schedule.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Directory.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets secrets stay out of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADEWATCH_DB_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
	if v := os.Getenv("TRADEWATCH_DB_HOST"); v != "" {
		cfg.DB.Host = v
	}
	if v := os.Getenv("TRADEWATCH_DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.DB.Port = p
		}
	}
	if v := os.Getenv("TRADEWATCH_NOTIFY_TOKEN"); v != "" {
		cfg.Notify.Token = v
	}
	if v := os.Getenv("TRADEWATCH_SPACES_SECRET"); v != "" {
		cfg.Storage.Spaces.Secret = v
	}
	if v := os.Getenv("TRADEWATCH_MONGO_URI"); v != "" {
		cfg.Storage.Mongo.URI = v
	}
}

// Duration is a time.Duration that decodes from strings like "15m" or
// "30d".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d.Duration = time.Duration(n * float64(24*time.Hour))
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
