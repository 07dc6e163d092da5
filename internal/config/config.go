package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"

	"github.com/chararch/migbatch"
)

// EnvPrefix prefixes the environment variables overriding configuration keys, db.host is read from MIGBATCH_DB_HOST
const EnvPrefix = "MIGBATCH"

type Config struct {
	DB          DBConfig      `mapstructure:"db"`
	Log         LogConfig     `mapstructure:"log"`
	Migration   CommandConfig `mapstructure:"migration"`
	Launcher    CommandConfig `mapstructure:"launcher"`
	Catalog     CatalogConfig `mapstructure:"catalog"`
	History     HistoryConfig `mapstructure:"history"`
	JobPoolSize int           `mapstructure:"job_pool_size"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type CommandConfig struct {
	Interpreter string        `mapstructure:"interpreter"`
	EntryPoint  string        `mapstructure:"entry_point"`
	Subcommand  string        `mapstructure:"subcommand"`
	Args        []string      `mapstructure:"args"`
	Dir         string        `mapstructure:"dir"`
	Timeout     time.Duration `mapstructure:"timeout"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type CatalogConfig struct {
	Source string    `mapstructure:"source"`
	Dir    string    `mapstructure:"dir"`
	FTP    FTPConfig `mapstructure:"ftp"`
}

type FTPConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	ConnTimeout time.Duration `mapstructure:"conn_timeout"`
}

type HistoryConfig struct {
	Limit int `mapstructure:"limit"`
}

// catalog sources
const (
	CatalogLocal = "local"
	CatalogFTP   = "ftp"
)

func setDefaults(v *viper.Viper) {
	migration := migbatch.DefaultMigrationCommand()
	launcher := migbatch.DefaultLaunchCommand()

	v.SetDefault("db.host", "127.0.0.1")
	v.SetDefault("db.port", 3306)
	v.SetDefault("db.user", "root")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "migbatch")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age", 7)

	setCommandDefaults(v, "migration", migration)
	setCommandDefaults(v, "launcher", launcher)

	v.SetDefault("catalog.source", CatalogLocal)
	v.SetDefault("catalog.dir", "upgrades/schema")
	v.SetDefault("catalog.ftp.host", "")
	v.SetDefault("catalog.ftp.port", 21)
	v.SetDefault("catalog.ftp.user", "anonymous")
	v.SetDefault("catalog.ftp.password", "")
	v.SetDefault("catalog.ftp.conn_timeout", 10*time.Second)

	v.SetDefault("history.limit", migbatch.DefaultHistoryLimit)
	v.SetDefault("job_pool_size", migbatch.DefaultJobPoolSize)
}

func setCommandDefaults(v *viper.Viper, prefix string, tmpl migbatch.CommandTemplate) {
	v.SetDefault(prefix+".interpreter", tmpl.Interpreter)
	v.SetDefault(prefix+".entry_point", tmpl.EntryPoint)
	v.SetDefault(prefix+".subcommand", tmpl.Subcommand)
	v.SetDefault(prefix+".args", tmpl.Args)
	v.SetDefault(prefix+".dir", tmpl.Dir)
	v.SetDefault(prefix+".timeout", tmpl.Timeout)
	v.SetDefault(prefix+".idle_timeout", tmpl.IdleTimeout)
}

// Load reads the configuration from file, or from migbatch.yaml in the working directory when file is empty, then
// applies MIGBATCH_* environment variables. A missing default file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("migbatch")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Catalog.Source {
	case CatalogLocal:
	case CatalogFTP:
		if c.Catalog.FTP.Host == "" {
			return errors.New("catalog.ftp.host is required when catalog.source is ftp")
		}
	default:
		return fmt.Errorf("unknown catalog.source %q", c.Catalog.Source)
	}
	if c.Migration.Timeout <= 0 || c.Launcher.Timeout <= 0 {
		return errors.New("command timeouts must be positive")
	}
	return nil
}

// DSN returns the go-sql-driver/mysql data source name, times are parsed into time.Time
func (c DBConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.Name
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Template returns the command template described by c
func (c CommandConfig) Template() migbatch.CommandTemplate {
	return migbatch.CommandTemplate{
		Interpreter: c.Interpreter,
		EntryPoint:  c.EntryPoint,
		Subcommand:  c.Subcommand,
		Args:        c.Args,
		Dir:         c.Dir,
		Timeout:     c.Timeout,
		IdleTimeout: c.IdleTimeout,
	}
}
