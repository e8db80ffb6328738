package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/koustreak/datforge/internal/database"
	"github.com/koustreak/datforge/internal/filestore"
	"github.com/koustreak/datforge/internal/logger"
	"github.com/koustreak/datforge/internal/server"
)

const (
	maxWalkDepth = 25
)

// Config represents the run configuration from datforge.yaml. Schema
// documents are separate: this file says where generated data goes.
type Config struct {
	// Schema is the default schema document for generate and validate.
	Schema string `mapstructure:"schema" json:"schema"`

	// Seed overrides the document's seed when set.
	Seed *uint64 `mapstructure:"seed" json:"seed,omitempty"`

	Log      LogConfig      `mapstructure:"log" json:"log"`
	Output   OutputConfig   `mapstructure:"output" json:"output"`
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Store    StoreConfig    `mapstructure:"store" json:"store"`
	Server   ServerConfig   `mapstructure:"server" json:"server"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// OutputConfig controls where generate writes its rendering.
type OutputConfig struct {
	Format string `mapstructure:"format" json:"format"`
	Path   string `mapstructure:"path" json:"path"`
}

// DatabaseConfig holds the database sink settings.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" json:"driver"`
	DSN          string `mapstructure:"dsn" json:"dsn"`
	Schema       string `mapstructure:"schema" json:"schema"`
	CreateTables bool   `mapstructure:"create_tables" json:"create_tables"`
	DropExisting bool   `mapstructure:"drop_existing" json:"drop_existing"`
	ForeignKeys  bool   `mapstructure:"foreign_keys" json:"foreign_keys"`
	BatchSize    int    `mapstructure:"batch_size" json:"batch_size"`
}

// StoreConfig holds the object store sink settings.
type StoreConfig struct {
	Endpoint   string        `mapstructure:"endpoint" json:"endpoint"`
	AccessKey  string        `mapstructure:"access_key" json:"access_key"`
	SecretKey  string        `mapstructure:"secret_key" json:"-"`
	UseSSL     bool          `mapstructure:"use_ssl" json:"use_ssl"`
	Region     string        `mapstructure:"region" json:"region"`
	Bucket     string        `mapstructure:"bucket" json:"bucket"`
	Key        string        `mapstructure:"key" json:"key"`
	PresignTTL time.Duration `mapstructure:"presign_ttl" json:"presign_ttl"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" json:"addr"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" json:"max_body_bytes"`
	MaxRows        int           `mapstructure:"max_rows" json:"max_rows"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("DATFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only reaches keys viper already knows.
	_ = v.BindEnv("seed")

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("output.format", string(filestore.FormatFacts))
	v.SetDefault("output.path", "")

	v.SetDefault("database.driver", string(database.DriverPostgres))
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.schema", "")
	v.SetDefault("database.create_tables", true)
	v.SetDefault("database.drop_existing", false)
	v.SetDefault("database.foreign_keys", true)
	v.SetDefault("database.batch_size", database.DefaultBatchSize)

	v.SetDefault("store.endpoint", "localhost:9000")
	v.SetDefault("store.access_key", "")
	v.SetDefault("store.secret_key", "")
	v.SetDefault("store.use_ssl", false)
	v.SetDefault("store.region", "")
	v.SetDefault("store.bucket", "datforge")
	v.SetDefault("store.key", "")
	v.SetDefault("store.presign_ttl", "15m")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.max_rows", 1_000_000)
	v.SetDefault("server.request_timeout", "30s")
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for datforge.yaml or datforge.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"datforge.yaml", "datforge.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// LoggerConfig builds the logger settings. Each verbose step lowers the
// level by one; quiet keeps errors only.
func (c *Config) LoggerConfig(verbose int, quiet bool) *logger.Config {
	lc := logger.DefaultConfig()
	lc.Format = c.Log.Format
	lc.Level = c.Log.Level
	switch {
	case quiet:
		lc.Level = "error"
	case verbose >= 2:
		lc.Level = "debug"
	case verbose == 1 && lc.Level != "debug":
		lc.Level = "info"
	}
	return lc
}

// DatabaseConfig returns the connection settings, with dsn taking
// precedence over database.dsn.
func (c *Config) DatabaseConfig(dsn string) (*database.Config, error) {
	driver, err := database.ParseDriver(c.Database.Driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		dsn = c.Database.DSN
	}
	if dsn == "" {
		return nil, fmt.Errorf("database.dsn is required for the %s driver", driver)
	}
	dc := database.DefaultConfig(driver, dsn)
	dc.Schema = c.Database.Schema
	return dc, nil
}

// LoadOptions returns the loader settings.
func (c *Config) LoadOptions() database.LoadOptions {
	return database.LoadOptions{
		CreateTables: c.Database.CreateTables,
		DropExisting: c.Database.DropExisting,
		ForeignKeys:  c.Database.ForeignKeys,
		BatchSize:    c.Database.BatchSize,
	}
}

// StoreConfig returns the object store settings.
func (c *Config) StoreConfig() (*filestore.Config, error) {
	s := c.Store
	if s.Endpoint == "" {
		return nil, fmt.Errorf("store.endpoint is required")
	}
	fc := filestore.DefaultConfig(s.Endpoint, s.AccessKey, s.SecretKey)
	fc.UseSSL = s.UseSSL
	fc.Region = s.Region
	if s.Bucket != "" {
		fc.Bucket = s.Bucket
	}
	return fc, nil
}

// ServerConfig returns the HTTP server settings, with addr taking
// precedence over server.addr.
func (c *Config) ServerConfig(addr string) server.Config {
	sc := server.DefaultConfig(resolveString(addr, c.Server.Addr))
	if c.Server.MaxBodyBytes > 0 {
		sc.MaxBodyBytes = c.Server.MaxBodyBytes
	}
	if c.Server.MaxRows > 0 {
		sc.MaxRows = c.Server.MaxRows
	}
	if c.Server.RequestTimeout > 0 {
		sc.RequestTimeout = c.Server.RequestTimeout
	}
	return sc
}

// ResolvedSchema returns the schema document path, with path taking
// precedence over the configured one.
func (c *Config) ResolvedSchema(path string) string {
	return resolveString(path, c.Schema)
}

// resolveString returns the first non-empty string from the provided values.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
