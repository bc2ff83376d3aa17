package utils

import (
	"os"
	"path/filepath"
)

var (
	EmberHome   string
	EmberConfig string
)

func GetEmberHome() string {
	if EmberHome != "" {
		return EmberHome
	}

	home := os.Getenv("EMBERHOME")

	if home != "" {
		return home
	}

	return os.ExpandEnv(filepath.Join("$HOME", ".ember"))
}

func GetEmberConfigPath() string {
	if EmberConfig != "" {
		return EmberConfig
	}

	return GetEmberHome() + "/config/config.toml"
}
