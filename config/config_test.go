package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrek82/jorm-hashids/hashids"
)

func writeConfigFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, hashids.DefaultAlphabet, cfg.Hashids.Alphabet)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfigFile(t, "jorm.toml", `
[database]
driver = "postgres"
dsn = "postgres://localhost/app"
max_open_conns = 8
conn_max_lifetime = "5m"

[hashids]
salt = "file-salt"
min_length = 6

[log]
level = "warn"
format = "json"
`)

	cfg, err := Load(LoadOptions{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/app", cfg.Database.DSN)
	assert.Equal(t, 8, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "file-salt", cfg.Hashids.Salt)
	assert.Equal(t, 6, cfg.Hashids.MinLength)
	assert.Equal(t, hashids.DefaultAlphabet, cfg.Hashids.Alphabet)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	opts := cfg.Options()
	assert.Equal(t, 8, opts.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, opts.ConnMaxLifetime)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfigFile(t, "jorm.yml", `
hashids:
  salt: yaml-salt
  alphabet: OPQRST1234567890
log:
  level: error
`)

	cfg, err := Load(LoadOptions{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "yaml-salt", cfg.Hashids.Salt)
	assert.Equal(t, "OPQRST1234567890", cfg.Hashids.Alphabet)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestPrecedence(t *testing.T) {
	path := writeConfigFile(t, "jorm.toml", `
[hashids]
salt = "file"
min_length = 4
`)

	cfg, err := Load(LoadOptions{
		ConfigPath: path,
		Env: map[string]string{
			"JORM_HASHIDS_SALT":       "env",
			"JORM_HASHIDS_MIN_LENGTH": "7",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "env", cfg.Hashids.Salt)
	assert.Equal(t, 7, cfg.Hashids.MinLength)

	salt := "flag"
	cfg, err = Load(LoadOptions{
		ConfigPath: path,
		Env:        map[string]string{"JORM_HASHIDS_SALT": "env"},
		Flags:      FlagOverrides{Salt: &salt},
	})
	require.NoError(t, err)
	assert.Equal(t, "flag", cfg.Hashids.Salt)
	assert.Equal(t, 4, cfg.Hashids.MinLength)
}

func TestConfigPathFromEnv(t *testing.T) {
	path := writeConfigFile(t, "jorm.toml", "[hashids]\nsalt = \"via-env\"\n")

	cfg, err := Load(LoadOptions{Env: map[string]string{"JORM_CONFIG_PATH": path}})
	require.NoError(t, err)
	assert.Equal(t, "via-env", cfg.Hashids.Salt)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		env  map[string]string
	}{
		{"bad toml", "c.toml", "[hashids\n", nil},
		{"bad yaml", "c.yaml", "hashids: [", nil},
		{"unknown extension", "c.ini", "salt=x", nil},
		{"bad duration", "c.toml", "[database]\nconn_max_lifetime = \"soon\"\n", nil},
		{"negative min length", "c.toml", "[hashids]\nmin_length = -1\n", nil},
		{"short alphabet", "c.toml", "[hashids]\nalphabet = \"abc\"\n", nil},
		{"unknown driver", "c.toml", "[database]\ndriver = \"oracle\"\n", nil},
		{"bad level", "c.toml", "[log]\nlevel = \"verbose\"\n", nil},
		{"bad format", "c.toml", "[log]\nformat = \"xml\"\n", nil},
		{"bad env min length", "c.toml", "", map[string]string{"JORM_HASHIDS_MIN_LENGTH": "six"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.file, tt.body)
			_, err := Load(LoadOptions{ConfigPath: path, Env: tt.env})
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Load(LoadOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyAndEncoder(t *testing.T) {
	prev := hashids.Defaults()
	t.Cleanup(func() { hashids.SetDefaults(prev) })

	cfg := DefaultConfig()
	cfg.Hashids.Salt = "applied"
	cfg.Hashids.MinLength = 8
	cfg.Apply()

	got := hashids.Defaults()
	assert.Equal(t, "applied", got.Salt)
	assert.Equal(t, 8, got.MinLength)

	enc, err := cfg.Encoder()
	require.NoError(t, err)
	s, err := enc.Encode(1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(s), 8)
}

func TestLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.File = filepath.Join(t.TempDir(), "logs", "jorm.log")
	cfg.Log.Level = "warn"

	l, closeFn, err := cfg.Logger()
	require.NoError(t, err)
	l.Info("dropped")
	l.Warn("kept")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "dropped")

	cfg.Log.Level = "loud"
	_, _, err = cfg.Logger()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpen(t *testing.T) {
	prev := hashids.Defaults()
	t.Cleanup(func() { hashids.SetDefaults(prev) })

	cfg := DefaultConfig()
	cfg.Database.DSN = ":memory:"
	cfg.Database.MaxOpenConns = 1
	cfg.Log.Level = "silent"

	db, closeFn, err := cfg.Open()
	require.NoError(t, err)
	assert.NotNil(t, db.Logger())
	_, err = db.Exec("SELECT 1")
	require.NoError(t, err)
	require.NoError(t, closeFn())
}
