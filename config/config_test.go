package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("http:\n  addr: \":3000\"\n"))
	require.NoError(t, err)

	require.Equal(t, GeneratorDigits, cfg.Registry.Generator)
	require.Equal(t, 4, cfg.Registry.Digits)
	require.Equal(t, 15*time.Second, cfg.WS.PingEvery)
	require.Equal(t, "signal-relay", cfg.Logging.Service)
	require.Equal(t, "std", cfg.Logging.Backend)
	require.Empty(t, cfg.GRPC.Addr)
	require.Empty(t, cfg.Postgres.DSN)
}

func TestParse_Validation(t *testing.T) {
	cases := map[string]string{
		"missing addr":  "grpc:\n  addr: \":9092\"\n",
		"bad generator": "http:\n  addr: \":3000\"\nregistry:\n  generator: uuid\n",
		"bad digits":    "http:\n  addr: \":3000\"\nregistry:\n  digits: 12\n",
		"bad yaml":      "http: [",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_FromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":8080"
  staticDir: "./src"
registry:
  generator: words
ws:
  pingEvery: 5s
`), 0o644))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "./src", cfg.HTTP.StaticDir)
	require.Equal(t, GeneratorWords, cfg.Registry.Generator)
	require.Equal(t, 5*time.Second, cfg.WS.PingEvery)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_ShippedExample(t *testing.T) {
	t.Setenv("CONFIG_PATH", "config.yaml")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":3000", cfg.HTTP.Addr)
}
