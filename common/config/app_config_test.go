package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
id: game-1
httpPort: 8080
store:
  backend: mongo
timing:
  turn: 3000
database:
  postgres:
    dsn: postgres://localhost/yonmai
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "application.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	_, cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "game-1", cfg.ID)
	assert.Equal(t, 8080, cfg.HttpPort)
	assert.Equal(t, "mongo", cfg.StoreConf.Backend)
	assert.Equal(t, 3000, cfg.TimingConf.Turn)
	assert.Equal(t, 20000, cfg.TimingConf.Discard)
	assert.Equal(t, 25000, cfg.RuleConf.StartingScore)
	assert.True(t, cfg.RuleConf.StockEnabled)
	assert.Equal(t, "postgres://localhost/yonmai", cfg.DatabaseConf.PostgresConf.Dsn)
}

func TestLoad_NodeIDEnvOverride(t *testing.T) {
	t.Setenv("NODE_ID", "game-env")
	_, cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "game-env", cfg.ID)
}

func TestLoad_MissingID(t *testing.T) {
	t.Setenv("NODE_ID", "")
	_, _, err := Load(writeConfig(t, "httpPort: 1\n"))
	assert.Error(t, err)
}
