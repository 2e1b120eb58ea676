package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string  `yaml:"log-level" env-default:"info"`
	Gateway  Gateway `yaml:"gateway"`
	Engine   Engine  `yaml:"engine"`
	Redis    Redis   `yaml:"redis"`
}

type Gateway struct {
	Port       string        `yaml:"port" env-default:"7000"`
	AckTimeout time.Duration `yaml:"ack-timeout" env-default:"5s"`
}

type Engine struct {
	GatewayAddr string        `yaml:"gateway-addr" env-default:"localhost:7000"`
	Workers     int           `yaml:"workers" env-default:"2"`
	AckTimeout  time.Duration `yaml:"ack-timeout" env-default:"5s"`
}

type Redis struct {
	Host string `yaml:"host" env-default:""`
	Port string `yaml:"port" env-default:"6379"`
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
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// Enabled - the game archive is optional; it is on only when a redis host
// is configured.
func (that *Redis) Enabled() bool {
	return that.Host != ""
}
