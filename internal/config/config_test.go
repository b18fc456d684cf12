package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty working directory with the override
// variables cleared.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvToken, "")
	t.Setenv(EnvData, "")
	return dir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "resolutions.json", cfg.Store.Path)
	assert.Equal(t, 10, cfg.LatestLimit)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	isolate(t)

	_, err := Load("nope.yaml")
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
discord:
  token: abc
  guild_id: "123456789"
store:
  path: data/res.json
  watch: true
audit:
  path: audit.db
metrics:
  addr: ":9090"
embed:
  color: 0xff0000
latest_limit: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Discord.Token)
	assert.Equal(t, "123456789", cfg.Discord.GuildID)
	assert.Equal(t, "data/res.json", cfg.Store.Path)
	assert.True(t, cfg.Store.Watch)
	assert.Equal(t, "audit.db", cfg.Audit.Path)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, 0xff0000, cfg.Embed.Color)
	assert.Equal(t, 5, cfg.LatestLimit)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "store:\n  watch: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "resolutions.json", cfg.Store.Path)
	assert.Equal(t, 0x2b2d31, cfg.Embed.Color)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "discord:\n  token: from-file\n")
	t.Setenv(EnvToken, "from-env")
	t.Setenv(EnvData, "/srv/res.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Discord.Token)
	assert.Equal(t, "/srv/res.json", cfg.Store.Path)
}

func TestLoad_ExpandsVariables(t *testing.T) {
	dir := isolate(t)
	t.Setenv("RESBOT_TEST_DIR", "/var/lib/resbot")
	path := writeConfig(t, dir, "store:\n  path: ${RESBOT_TEST_DIR}/res.json\naudit:\n  path: $RESBOT_TEST_DIR/audit.db\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/resbot/res.json", cfg.Store.Path)
	assert.Equal(t, "/var/lib/resbot/audit.db", cfg.Audit.Path)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.Unsetenv(EnvToken))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DISCORD_TOKEN=dotenv-token\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(EnvToken) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv-token", cfg.Discord.Token)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "store: [unclosed\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero limit", func(c *Config) { c.LatestLimit = 0 }, "latest_limit"},
		{"limit above embed cap", func(c *Config) { c.LatestLimit = 26 }, "latest_limit"},
		{"color out of range", func(c *Config) { c.Embed.Color = 0x1000000 }, "color"},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, "path"},
		{"non-numeric guild", func(c *Config) { c.Discord.GuildID = "my-guild" }, "guild_id"},
		{"metrics without port", func(c *Config) { c.Metrics.Addr = "localhost" }, "addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := Validate(cfg)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.field)
		})
	}
}

func TestValidate_AcceptsDefault(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestRequireToken(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.RequireToken())

	cfg.Discord.Token = "t"
	assert.NoError(t, cfg.RequireToken())
}
