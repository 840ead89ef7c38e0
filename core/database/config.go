package database

import "strings"

// Config holds storage connection settings.
// An empty Host selects the ephemeral in-memory store.
type Config struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// InMemory reports whether the ephemeral SQLite store should be used
// instead of Postgres.
func (c Config) InMemory() bool {
	return strings.TrimSpace(c.Host) == ""
}
