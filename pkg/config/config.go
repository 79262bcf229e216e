package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Lobby     LobbyConfig
	Heartbeat HeartbeatConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Address        string
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LobbyConfig 房間層級的預設值
type LobbyConfig struct {
	MaxPlayers       int    `mapstructure:"max_players"`
	CountdownSeconds int    `mapstructure:"countdown_seconds"`
	DefaultRoomID    string `mapstructure:"default_room_id"`
}

// HeartbeatConfig 心跳掃描的間隔與兩個門檻
type HeartbeatConfig struct {
	Interval        time.Duration
	DisconnectAfter time.Duration `mapstructure:"disconnect_after"`
	RemoveAfter     time.Duration `mapstructure:"remove_after"`
}

type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// Default 回傳未讀取任何設定檔時的設定
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// 預設值一定能解析
	_ = v.Unmarshal(&config)
	return &config
}

// Load 從 ./pkg/config/config.yaml 載入設定，找不到檔案時使用預設值，
// 並允許以 PARTY_ 開頭的環境變數覆寫（例如 PARTY_SERVER_ADDRESS）。
func Load() (*Config, error) {
	return LoadFrom("./pkg/config")
}

func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("party")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("lobby.max_players", 12)
	v.SetDefault("lobby.countdown_seconds", 5)
	v.SetDefault("lobby.default_room_id", "")

	v.SetDefault("heartbeat.interval", time.Second)
	v.SetDefault("heartbeat.disconnect_after", 5*time.Second)
	v.SetDefault("heartbeat.remove_after", 60*time.Second)

	v.SetDefault("session.secret", "change_me_party_secret")
	v.SetDefault("session.ttl", 12*time.Hour)
	v.SetDefault("session.bcrypt_cost", 4)

	v.SetDefault("ratelimit.per_second", 20.0)
	v.SetDefault("ratelimit.burst", 40)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}
