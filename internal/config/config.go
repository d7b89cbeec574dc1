package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env-default:"info"`
	HTTPPort   string `yaml:"http-port" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env-default:"9091"`
	Redis      Redis  `yaml:"redis"`
	Game       Game   `yaml:"game"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

// Game - timings shared by every session's draw loop.
type Game struct {
	InitialPause      time.Duration `yaml:"initial-pause" env-default:"3s"`
	PaceUnit          time.Duration `yaml:"pace-unit" env-default:"1s"`
	NotifyTimeout     time.Duration `yaml:"notify-timeout" env-default:"2s"`
	DefaultMaxPlayers int           `yaml:"default-max-players" env-default:"16"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	if that.Host == "" || that.Port == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
