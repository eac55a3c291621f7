package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/shrek82/jorm-hashids/core"
	"github.com/shrek82/jorm-hashids/dialect"
	"github.com/shrek82/jorm-hashids/hashids"
	"github.com/shrek82/jorm-hashids/logger"
)

const (
	defaultDriver       = "sqlite3"
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
	defaultLogMaxSizeMB = 10
	defaultLogMaxFiles  = 5
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Database DatabaseConfig `toml:"database" yaml:"database"`
	Hashids  HashidsConfig  `toml:"hashids" yaml:"hashids"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver" yaml:"driver"`
	DSN             string        `toml:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// HashidsConfig holds the defaults applied to hashid fields declared
// without their own salt, min_length or alphabet.
type HashidsConfig struct {
	Salt      string `toml:"salt" yaml:"salt"`
	MinLength int    `toml:"min_length" yaml:"min_length"`
	Alphabet  string `toml:"alphabet" yaml:"alphabet"`
}

type LogConfig struct {
	Level     string `toml:"level" yaml:"level"`
	Format    string `toml:"format" yaml:"format"`
	File      string `toml:"file" yaml:"file"`
	MaxSizeMB int    `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files" yaml:"max_files"`
}

type LoadOptions struct {
	// ConfigPath is a .toml, .yaml or .yml file. Empty falls back to JORM_CONFIG_PATH.
	ConfigPath string
	// Env overrides the process environment for the keys it contains.
	Env   map[string]string
	Flags FlagOverrides
}

// FlagOverrides win over every other source.
type FlagOverrides struct {
	Salt      *string
	MinLength *int
	Alphabet  *string
}

func DefaultConfig() Config {
	h := hashids.DefaultConfig()
	return Config{
		Database: DatabaseConfig{
			Driver: defaultDriver,
		},
		Hashids: HashidsConfig{
			Salt:      h.Salt,
			MinLength: h.MinLength,
			Alphabet:  h.Alphabet,
		},
		Log: LogConfig{
			Level:     defaultLogLevel,
			Format:    defaultLogFormat,
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

// Load builds a Config from defaults, then the config file, then the
// environment, then flags, and validates the result.
func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	path := opts.ConfigPath
	if path == "" {
		path, _ = lookupEnv(opts, "JORM_CONFIG_PATH")
	}
	if err := loadAndApplyFile(path, &cfg); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg, opts); err != nil {
		return Config{}, err
	}
	applyFlagOverrides(&cfg, opts.Flags)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type rawConfig struct {
	Database *rawDatabase `toml:"database" yaml:"database"`
	Hashids  *rawHashids  `toml:"hashids" yaml:"hashids"`
	Log      *rawLog      `toml:"log" yaml:"log"`
}

type rawDatabase struct {
	Driver          *string `toml:"driver" yaml:"driver"`
	DSN             *string `toml:"dsn" yaml:"dsn"`
	MaxOpenConns    *int    `toml:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    *int    `toml:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime *string `toml:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

type rawHashids struct {
	Salt      *string `toml:"salt" yaml:"salt"`
	MinLength *int    `toml:"min_length" yaml:"min_length"`
	Alphabet  *string `toml:"alphabet" yaml:"alphabet"`
}

type rawLog struct {
	Level     *string `toml:"level" yaml:"level"`
	Format    *string `toml:"format" yaml:"format"`
	File      *string `toml:"file" yaml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files" yaml:"max_files"`
}

func loadAndApplyFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("%w: parse YAML file %q: %v", ErrInvalidConfig, path, err)
		}
	default:
		return fmt.Errorf("%w: unsupported config file extension %q", ErrInvalidConfig, ext)
	}

	return applyRawConfig(cfg, raw)
}

func applyRawConfig(cfg *Config, raw rawConfig) error {
	if raw.Database != nil {
		setString(raw.Database.Driver, &cfg.Database.Driver)
		setString(raw.Database.DSN, &cfg.Database.DSN)
		setInt(raw.Database.MaxOpenConns, &cfg.Database.MaxOpenConns)
		setInt(raw.Database.MaxIdleConns, &cfg.Database.MaxIdleConns)
		if err := setDuration("database.conn_max_lifetime", raw.Database.ConnMaxLifetime, &cfg.Database.ConnMaxLifetime); err != nil {
			return err
		}
	}

	if raw.Hashids != nil {
		setString(raw.Hashids.Salt, &cfg.Hashids.Salt)
		setInt(raw.Hashids.MinLength, &cfg.Hashids.MinLength)
		setString(raw.Hashids.Alphabet, &cfg.Hashids.Alphabet)
	}

	if raw.Log != nil {
		setString(raw.Log.Level, &cfg.Log.Level)
		setString(raw.Log.Format, &cfg.Log.Format)
		setString(raw.Log.File, &cfg.Log.File)
		setInt(raw.Log.MaxSizeMB, &cfg.Log.MaxSizeMB)
		setInt(raw.Log.MaxFiles, &cfg.Log.MaxFiles)
	}
	return nil
}

func applyEnvOverrides(cfg *Config, opts LoadOptions) error {
	if value, ok := lookupEnv(opts, "JORM_DRIVER"); ok {
		cfg.Database.Driver = value
	}
	if value, ok := lookupEnv(opts, "JORM_DSN"); ok {
		cfg.Database.DSN = value
	}

	if value, ok := lookupEnv(opts, "JORM_HASHIDS_SALT"); ok {
		cfg.Hashids.Salt = value
	}
	if value, ok := lookupEnv(opts, "JORM_HASHIDS_MIN_LENGTH"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: parse JORM_HASHIDS_MIN_LENGTH: %v", ErrInvalidConfig, err)
		}
		cfg.Hashids.MinLength = parsed
	}
	if value, ok := lookupEnv(opts, "JORM_HASHIDS_ALPHABET"); ok {
		cfg.Hashids.Alphabet = value
	}

	if value, ok := lookupEnv(opts, "JORM_LOG_LEVEL"); ok {
		cfg.Log.Level = value
	}
	if value, ok := lookupEnv(opts, "JORM_LOG_FILE"); ok {
		cfg.Log.File = value
	}
	return nil
}

func applyFlagOverrides(cfg *Config, flags FlagOverrides) {
	setString(flags.Salt, &cfg.Hashids.Salt)
	setInt(flags.MinLength, &cfg.Hashids.MinLength)
	setString(flags.Alphabet, &cfg.Hashids.Alphabet)
}

func validate(cfg Config) error {
	if _, ok := dialect.Get(cfg.Database.Driver); !ok {
		return fmt.Errorf("%w: database.driver %q is not supported", ErrInvalidConfig, cfg.Database.Driver)
	}
	if _, err := hashids.New(cfg.HashidsConfig()); err != nil {
		return fmt.Errorf("%w: hashids: %v", ErrInvalidConfig, err)
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	switch logger.LogFormat(cfg.Log.Format) {
	case logger.LogFormatText, logger.LogFormatJSON:
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, cfg.Log.Format)
	}
	return nil
}

func setDuration(field string, raw *string, target *time.Duration) error {
	if raw == nil {
		return nil
	}
	d, err := time.ParseDuration(*raw)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, field, err)
	}
	*target = d
	return nil
}

func setString(raw *string, target *string) {
	if raw != nil {
		*target = *raw
	}
}

func setInt(raw *int, target *int) {
	if raw != nil {
		*target = *raw
	}
}

func lookupEnv(opts LoadOptions, key string) (string, bool) {
	if opts.Env != nil {
		if value, ok := opts.Env[key]; ok {
			return value, true
		}
	}
	return os.LookupEnv(key)
}

// HashidsConfig converts the hashids section for the encoder constructor.
func (c Config) HashidsConfig() hashids.Config {
	return hashids.Config{
		Salt:      c.Hashids.Salt,
		MinLength: c.Hashids.MinLength,
		Alphabet:  c.Hashids.Alphabet,
	}
}

// Apply installs the hashids section as the process-wide field defaults.
// Call it before the first query touches a model.
func (c Config) Apply() {
	hashids.SetDefaults(c.HashidsConfig())
}

// Encoder builds an encoder from the hashids section.
func (c Config) Encoder() (hashids.Encoder, error) {
	return hashids.New(c.HashidsConfig())
}

// Options returns the connection pool options of the database section.
func (c Config) Options() *core.Options {
	return &core.Options{
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// Logger builds the logger described by the log section. The returned
// function releases the log file, if any.
func (c Config) Logger() (logger.Logger, func() error, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}

	l := logger.NewStdLogger()
	closeFn := func() error { return nil }
	if c.Log.File != "" {
		l, closeFn, err = logger.NewFileLogger(logger.RotationConfig{
			File:      c.Log.File,
			MaxSizeMB: c.Log.MaxSizeMB,
			MaxFiles:  c.Log.MaxFiles,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	l.SetLevel(level)
	l.SetFormat(logger.LogFormat(c.Log.Format))
	return l, closeFn, nil
}

// Open applies the hashid defaults and connects with the database section.
func (c Config) Open() (*core.DB, func() error, error) {
	c.Apply()

	l, closeLog, err := c.Logger()
	if err != nil {
		return nil, nil, err
	}
	opts := c.Options()
	opts.Logger = l

	db, err := core.Open(c.Database.Driver, c.Database.DSN, opts)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}
	return db, func() error {
		return errors.Join(db.Close(), closeLog())
	}, nil
}
