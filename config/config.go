package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Quest    QuestConfig    `mapstructure:"quest"`
	Reward   RewardConfig   `mapstructure:"reward"`
	Ranking  RankingConfig  `mapstructure:"ranking"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
	// AdminIPs restricts admin routes to these client IPs. Empty allows all.
	AdminIPs []string `mapstructure:"admin_ips"`
	// LogFile, when set, receives JSON logs with size-based rotation in
	// addition to stderr.
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

// DatabaseConfig selects the persistence backend. A non-empty URL selects
// the shared MySQL store; otherwise the embedded SQLite file is used.
type DatabaseConfig struct {
	URL          string        `mapstructure:"url"`
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	OpTimeout    time.Duration `mapstructure:"op_timeout"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type QuestConfig struct {
	// MaxActive caps how many InProgress quests one adventurer may accept.
	// Zero disables the cap.
	MaxActive int `mapstructure:"max_active"`
	// DigestCron schedules the overdue digest. Empty disables it.
	DigestCron string `mapstructure:"digest_cron"`
}

type RewardConfig struct {
	LevelBase int `mapstructure:"level_base"`
}

type RankingConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	// RefreshCron overrides RefreshInterval when set.
	RefreshCron string `mapstructure:"refresh_cron"`
	Top         int    `mapstructure:"top"`
}

// Load reads config from the given YAML file path. A missing file is not an
// error; defaults and QUESTBOARD_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("questboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.admin_key", "")
	v.SetDefault("server.admin_ips", []string{})
	v.SetDefault("server.log_file", "")
	v.SetDefault("server.log_max_size_mb", 100)
	v.SetDefault("server.log_max_backups", 5)
	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite_path", "./data/quest_board.db")
	v.SetDefault("database.mysql_max_open", 20)
	v.SetDefault("database.mysql_max_idle", 5)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("database.dial_timeout", "5s")
	v.SetDefault("database.op_timeout", "5s")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 50)
	v.SetDefault("security.rate_limit_burst", 100)
	v.SetDefault("quest.max_active", 3)
	v.SetDefault("quest.digest_cron", "0 8 * * *")
	v.SetDefault("reward.level_base", 100)
	v.SetDefault("ranking.refresh_interval", "1m")
	v.SetDefault("ranking.refresh_cron", "")
	v.SetDefault("ranking.top", 100)
}
