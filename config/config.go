package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full hub configuration. Values come from
// relayhub.yaml (working dir or /etc/relayhub) overridden by
// RELAYHUB_* environment variables; every field has a bootable default.
type Config struct {
	NodeID   int64  `mapstructure:"node_id"`
	NodeName string `mapstructure:"node_name"`
	HTTPAddr string `mapstructure:"http_addr"`
	LogLevel string `mapstructure:"log_level"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		PoolSize int    `mapstructure:"pool_size"`
	} `mapstructure:"redis"`

	Nats struct {
		Enabled bool     `mapstructure:"enabled"`
		Servers []string `mapstructure:"servers"`
		Name    string   `mapstructure:"name"`
	} `mapstructure:"nats"`

	Session struct {
		CookieName  string        `mapstructure:"cookie_name"`
		JWTSecret   string        `mapstructure:"jwt_secret"`
		PresenceTTL time.Duration `mapstructure:"presence_ttl"`
	} `mapstructure:"session"`

	Hub struct {
		SendQueueSize  int           `mapstructure:"send_queue_size"`
		FanoutQueue    int           `mapstructure:"fanout_queue"`
		WriteTimeout   time.Duration `mapstructure:"write_timeout"`
		PongTimeout    time.Duration `mapstructure:"pong_timeout"`
		PingInterval   time.Duration `mapstructure:"ping_interval"`
		MaxMessageSize int64         `mapstructure:"max_message_size"`
	} `mapstructure:"hub"`
}

// Load reads the configuration. A missing config file is not an error;
// defaults plus environment keep the hub bootable.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("relayhub")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/relayhub")
	v.SetEnvPrefix("relayhub")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("node_id", 1)
	v.SetDefault("node_name", "relayhub-1")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "debug")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.servers", []string{"nats://127.0.0.1:4222"})
	v.SetDefault("nats.name", "relayhub-1")

	v.SetDefault("session.cookie_name", "session")
	v.SetDefault("session.jwt_secret", "")
	v.SetDefault("session.presence_ttl", 2*time.Minute)

	v.SetDefault("hub.send_queue_size", 256)
	v.SetDefault("hub.fanout_queue", 4096)
	v.SetDefault("hub.write_timeout", 5*time.Second)
	v.SetDefault("hub.pong_timeout", 60*time.Second)
	v.SetDefault("hub.ping_interval", 25*time.Second)
	v.SetDefault("hub.max_message_size", 1<<20)
}
