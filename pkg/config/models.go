package config

import "time"

type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Uploads   UploadsConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Address         string
	Auth            AuthConfig
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwtSecret"`
}

type ConnectionLimitConfig struct {
	MaxPerUser int    `mapstructure:"maxPerUser"`
	Mode       string `mapstructure:"mode"` // "reject" or "cycle"
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

type RedisConfig struct {
	URL string
}

type PostgresConfig struct {
	URL string
}

type UploadsConfig struct {
	// Dir holds message image uploads. Deletions are refused for anything
	// that resolves outside of it.
	Dir           string
	MaxAge        time.Duration `mapstructure:"maxAge"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
}

type LoggingConfig struct {
	Level string
}
