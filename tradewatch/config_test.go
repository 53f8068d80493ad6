package tradewatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tortaapp/tradewatch/tradewatch/pricing"
	"github.com/tortaapp/tradewatch/tradewatch/storage"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, DefaultEngineConfig(), cfg.Engine)
	assert.Equal(t, pricing.DefaultConfig(), cfg.Engine.Pricing())
	assert.Equal(t, storage.BackendFile, cfg.Storage.Backend)
	assert.False(t, cfg.DB.Enabled)

	sc := cfg.Engine.Services(cfg.Directory.DuplicateTTL.Duration)
	assert.Equal(t, 0.4, sc.MinConfidence)
	assert.Equal(t, 15*time.Minute, sc.EvidenceCooldown)
	assert.Equal(t, 30*24*time.Hour, sc.Retention)
	assert.Equal(t, 7*24*time.Hour, sc.ListingWindow)
	assert.Equal(t, 5*time.Minute, sc.DuplicateTTL)
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"
skip = ["heartbeat"]

[engine]
half_life = "14d"
min_confidence = 0.5
evidence_cooldown = "30m"

[directory]
default_server = "Harmony"
timezone = "Europe/Stockholm"

[storage]
backend = "mongo"

[storage.mongo]
uri = "mongodb://localhost:27017"
database = "tradewatch"

[api]
enabled = true
port = 9090

[schedule]
report = "15 4 * * *"
`)
	t.Setenv("TRADEWATCH_MONGO_URI", "mongodb://db:27017")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"heartbeat"}, cfg.Log.Skip)
	assert.Equal(t, 14*24*time.Hour, cfg.Engine.HalfLife.Duration)
	assert.Equal(t, 0.5, cfg.Engine.MinConfidence)
	assert.Equal(t, 30*time.Minute, cfg.Engine.EvidenceCooldown.Duration)
	assert.Equal(t, 1.5, cfg.Engine.IQRMultiplier, "untouched keys keep defaults")
	assert.Equal(t, "Harmony", cfg.Directory.DefaultServer)
	assert.Equal(t, "mongodb://db:27017", cfg.Storage.Mongo.URI)
	assert.Equal(t, "15 4 * * *", cfg.Schedule.Report)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "127.0.0.1:9090", cfg.API.Address())

	loc, err := cfg.Directory.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Stockholm", loc.String())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad level", "[log]\nlevel = \"loud\""},
		{"bad backend", "[storage]\nbackend = \"redis\""},
		{"db without host", "[db]\nenabled = true\ndatabase = \"tw\""},
		{"notify without token", "[notify]\nenabled = true\nchannel_id = \"1\""},
		{"confidence above one", "[engine]\nmin_confidence = 1.5"},
		{"negative duration", "[engine]\nretention = \"-1h\""},
		{"listing past retention", "[engine]\nlisting_window = \"60d\""},
		{"bad duration", "[engine]\nhalf_life = \"soon\""},
		{"bad cron", "[schedule]\nreport = \"every day\""},
		{"api without port", "[api]\nenabled = true\nport = 0"},
		{"api port out of range", "[api]\nport = 70000"},
		{"bad timezone", "[directory]\ntimezone = \"Mars/Olympus\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestPricingConfig_LoadTable(t *testing.T) {
	table, err := PricingConfig{}.LoadTable()
	require.NoError(t, err)
	assert.Equal(t, pricing.DefaultTable(), table)

	inline := PricingConfig{
		Exponents: map[string]float64{pricing.DefaultKey: 2},
		Materials: map[string]float64{pricing.DefaultKey: 1, "iron": 0.8},
	}
	table, err = inline.LoadTable()
	require.NoError(t, err)
	assert.Equal(t, 0.8, table.Materials["iron"])

	_, err = PricingConfig{Materials: map[string]float64{"iron": 1}}.LoadTable()
	assert.ErrorIs(t, err, pricing.ErrMissingExponent)
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"15m", 15 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"30d", 30 * 24 * time.Hour},
		{"0.5d", 12 * time.Hour},
		{" 3s ", 3 * time.Second},
	}
	for _, tt := range tests {
		var d Duration
		require.NoError(t, d.UnmarshalText([]byte(tt.in)), tt.in)
		assert.Equal(t, tt.want, d.Duration, tt.in)
	}

	var d Duration
	assert.Error(t, d.UnmarshalText([]byte("xd")))
	out, err := Duration{time.Minute}.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m0s", string(out))
}
