package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumashape/insert-pricing/internal/pricing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_PATH", "LOG_LEVEL", "ADMIN_TOKEN", "PRICING_PARAMS_FILE", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_TTL_SECONDS", "KAFKA_BROKERS", "KAFKA_ORDERS_TOPIC"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./pricing.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "orders", cfg.Kafka.OrdersTopic)
	assert.Equal(t, pricing.DefaultParameters(), cfg.Parameters)
}

func TestLoadFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("material_cost_per_in3: 0.05\n"), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("ADMIN_TOKEN", "secret")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_PASSWORD", "")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_TTL_SECONDS", "30")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("PRICING_PARAMS_FILE", path)

	cfg, err := Load(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "secret", cfg.AdminToken)
	assert.Equal(t, RedisConfig{Addr: "localhost:6379", DB: 2, TTL: 30 * time.Second}, cfg.Redis)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 0.05, cfg.Parameters.MaterialCostPerIn3)
}

func TestDecodeParametersKeepsDefaultsForOmittedFields(t *testing.T) {
	params, err := decodeParameters(strings.NewReader(`
kaiser_margin_pct: 0.4
engraving_flat_fee: 3.5
`))
	require.NoError(t, err)

	want := pricing.DefaultParameters()
	want.KaiserMarginPct = 0.4
	want.EngravingFlatFee = 3.5
	assert.Equal(t, want, params)
}

func TestDecodeParametersEmptyFile(t *testing.T) {
	params, err := decodeParameters(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, pricing.DefaultParameters(), params)
}

func TestDecodeParametersRejectsUnknownKeys(t *testing.T) {
	_, err := decodeParameters(strings.NewReader("materal_cost: 1\n"))
	require.Error(t, err)
}

func TestDecodeParametersRejectsOutOfRangeValues(t *testing.T) {
	cases := map[string]string{
		"infinite": "material_cost_per_in3: .inf\n",
		"nan":      "kaiser_margin_pct: .nan\n",
		"negative": "shipping_flat_fee: -4\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeParameters(strings.NewReader(doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), strings.SplitN(doc, ":", 2)[0])
		})
	}
}

func TestLoadParametersMissingFile(t *testing.T) {
	_, err := LoadParameters(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
