package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Debug           bool   `envconfig:"debug"`
	Env             string `envconfig:"env"`
	DataDir         string `envconfig:"data_dir"`
	DocumentsDir    string `envconfig:"documents_dir"`
	DatabaseFile    string `envconfig:"database_file"`
	LogDir          string `envconfig:"log_dir"`
	DefaultsFile    string `envconfig:"defaults_file"`
	DefaultUsername string `envconfig:"default_username"`
	CacheCountLimit int    `envconfig:"cache_count_limit"`
	CacheCostLimit  int64  `envconfig:"cache_cost_limit"`
}

func Load() (*Config, error) {
	env := os.Getenv("CHATTERBOX_ENV")
	if env != "prod" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	err := envconfig.Process("chatterbox", c)
	if err != nil {
		return nil, err
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.DocumentsDir == "" {
		c.DocumentsDir = filepath.Join(c.DataDir, "documents")
	}
	if c.DatabaseFile == "" {
		c.DatabaseFile = filepath.Join(c.DataDir, "chatterbox.db")
	}
	if c.LogDir == "" {
		c.LogDir = "./log"
	}
	if c.DefaultsFile == "" {
		c.DefaultsFile = filepath.Join(c.DataDir, "defaults.yaml")
	}
	if c.DefaultUsername == "" {
		c.DefaultUsername = "you"
	}
	if c.CacheCountLimit <= 0 {
		c.CacheCountLimit = 50
	}
	if c.CacheCostLimit <= 0 {
		// 100 mb of decoded pixels
		c.CacheCostLimit = 100 * 1024 * 1024
	}
}
