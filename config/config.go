package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Game        GameConfig        `mapstructure:"game"`
	Phrases     PhrasesConfig     `mapstructure:"phrases"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Database    DatabaseConfig    `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress string   `mapstructure:"http_address"`
	RPCAddress  string   `mapstructure:"rpc_address"`
	GRPCAddress string   `mapstructure:"grpc_address"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

type GameConfig struct {
	DefaultLanguage     string        `mapstructure:"default_language"`
	DefaultRoundSeconds int           `mapstructure:"default_round_seconds"`
	GracePeriod         time.Duration `mapstructure:"grace_period"`
	RestoreGracePeriod  time.Duration `mapstructure:"restore_grace_period"`
	TickInterval        time.Duration `mapstructure:"tick_interval"`
	StatsInterval       time.Duration `mapstructure:"stats_interval"`
}

type PhrasesConfig struct {
	Path            string        `mapstructure:"path"`
	RemoteURL       string        `mapstructure:"remote_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	InitialDelay    time.Duration `mapstructure:"initial_delay"`
}

// PersistenceConfig selects the session store. Driver is one of none, file, postgres or gorm;
// a Path with driver none enables the file store.
type PersistenceConfig struct {
	Driver    string        `mapstructure:"driver"`
	Path      string        `mapstructure:"path"`
	SaveDelay time.Duration `mapstructure:"save_delay"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":4174")
	v.SetDefault("server.rpc_address", "")
	v.SetDefault("server.grpc_address", "")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("log.development", false)

	v.SetDefault("game.default_language", "fr")
	v.SetDefault("game.default_round_seconds", 90)
	v.SetDefault("game.grace_period", 5*time.Second)
	v.SetDefault("game.restore_grace_period", 30*time.Second)
	v.SetDefault("game.tick_interval", time.Second)
	v.SetDefault("game.stats_interval", 10*time.Second)

	v.SetDefault("phrases.path", "data/phrases.json")
	v.SetDefault("phrases.remote_url", "")
	v.SetDefault("phrases.refresh_interval", time.Hour)
	v.SetDefault("phrases.initial_delay", 10*time.Second)

	v.SetDefault("persistence.driver", "none")
	v.SetDefault("persistence.path", "")
	v.SetDefault("persistence.save_delay", time.Second)

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "phrasegame")
	v.SetDefault("database.postgres.sslmode", "disable")
}

// LoadConfig reads config.yaml from path. A missing file is not an error: defaults and
// environment variables (SERVER_HTTP_ADDRESS, PERSISTENCE_DRIVER, ...) still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("persistence.path", "PERSISTENCE_PATH", "PERSISTENT_PATH")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
