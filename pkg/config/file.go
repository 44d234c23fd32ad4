package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const envPrefix = "BIBLIOTEKA_"

// applyOverrides layers an optional YAML config file and BIBLIOTEKA_*
// environment variables on top of the environment defaults. Environment
// variables win over the file.
func applyOverrides(cfg *Config) error {
	k := koanf.New(".")

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "./config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return errors.WithStack(err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return errors.WithStack(err)
	}

	if v := k.String("server.host"); v != "" {
		cfg.ServerHost = v
	}
	if k.Exists("server.port") {
		cfg.ServerPort = k.Int("server.port")
	}
	if v := k.String("database.path"); v != "" {
		cfg.DatabaseFilePath = v
	}
	if k.Exists("database.debug") {
		cfg.DatabaseDebug = k.Bool("database.debug")
	}
	if v := k.String("jwt.secret"); v != "" {
		cfg.JWTSecret = v
	}
	if v := k.String("uploads.dir"); v != "" {
		cfg.UploadDir = v
	}

	return nil
}
