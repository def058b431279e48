package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so no project config is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, 100, cfg.History.Limit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, 32, cfg.MaxDepth)
	assert.Zero(t, cfg.Seed)
}

func TestLoad_Env(t *testing.T) {
	chdir(t)
	t.Setenv("REROLL_STORE", "redis")
	t.Setenv("REROLL_REDIS_ADDR", "cache:6380")
	t.Setenv("REROLL_REDIS_TTL", "90m")
	t.Setenv("REROLL_HISTORY_LIMIT", "7")
	t.Setenv("REROLL_SEED", "42")

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 90*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 7, cfg.History.Limit)
	assert.Equal(t, uint64(42), cfg.Seed)
}

func TestLoad_ProjectFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "reroll.yaml", "corpus: prompts.json\nstore: sqlite\nstore_path: h.db\nhistory:\n  limit: 5\n"},
		{"toml", "reroll.toml", "corpus = \"prompts.json\"\nstore = \"sqlite\"\nstore_path = \"h.db\"\n[history]\nlimit = 5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdir(t)
			require.NoError(t, os.WriteFile(filepath.Join(dir, tt.file), []byte(tt.content), 0644))

			// Found from a subdirectory too.
			sub := filepath.Join(dir, "nested")
			require.NoError(t, os.Mkdir(sub, 0755))
			t.Chdir(sub)

			v, err := New("")
			require.NoError(t, err)
			cfg, err := Load(v)
			require.NoError(t, err)

			assert.Equal(t, "prompts.json", cfg.Corpus)
			assert.Equal(t, StoreSQLite, cfg.Store)
			assert.Equal(t, "h.db", cfg.StorePath)
			assert.Equal(t, 5, cfg.History.Limit)
		})
	}
}

func TestNew_MissingExplicitFile(t *testing.T) {
	chdir(t)
	_, err := New("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestBindFlags(t *testing.T) {
	chdir(t)
	t.Setenv("REROLL_STORE", "redis")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("store", "memory", "")
	flags.String("redis-addr", "", "")
	flags.Int("history-limit", 0, "")
	flags.Bool("verbose", false, "not a config key")
	require.NoError(t, flags.Parse([]string{"--store", "memory", "--redis-addr", "r:1", "--history-limit", "3"}))

	v, err := New("")
	require.NoError(t, err)
	require.NoError(t, BindFlags(v, flags))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store, "flags win over the environment")
	assert.Equal(t, "r:1", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.History.Limit)
}

func TestBindFlags_UnsetFlagKeepsEnv(t *testing.T) {
	chdir(t)
	t.Setenv("REROLL_STORE", "redis")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("store", "memory", "")
	require.NoError(t, flags.Parse(nil))

	v, err := New("")
	require.NoError(t, err)
	require.NoError(t, BindFlags(v, flags))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.Store)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Store: StoreMemory, History: HistoryConfig{Limit: 1}, HTTP: HTTPConfig{Port: 80}}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store = "mongo" }},
		{"sqlite without path", func(c *Config) { c.Store = StoreSQLite }},
		{"negative limit", func(c *Config) { c.History.Limit = -1 }},
		{"port out of range", func(c *Config) { c.HTTP.Port = 70000 }},
		{"negative depth", func(c *Config) { c.MaxDepth = -2 }},
	}

	base := valid()
	assert.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestCorpusPath(t *testing.T) {
	assert.Equal(t, "a.json", (&Config{Corpus: "a.json", ListsDir: "lists"}).CorpusPath())
	assert.Equal(t, "lists", (&Config{ListsDir: "lists"}).CorpusPath())
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "redis.addr", flagKey("redis-addr"))
	assert.Equal(t, "history.limit", flagKey("history-limit"))
	assert.Equal(t, "http.port", flagKey("http-port"))
	assert.Equal(t, "store_path", flagKey("store-path"))
	assert.Equal(t, "max_depth", flagKey("max-depth"))
}
