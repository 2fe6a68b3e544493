package main

import (
	"os"

	verrors "variationutil/api/errors"
	"variationutil/api/models"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// loadConfig takes defaults and overrides from the environment, then the
// values present in the YAML file at path, if any.
func loadConfig(path string) (*models.Config, error) {
	var cfg models.Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, verrors.Wrap(verrors.KindFormat, err, "invalid environment")
	}
	if path == "" {
		return &cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindNotFound, err, "config %s", path)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, verrors.Wrap(verrors.KindFormat, err, "config %s", path)
	}
	return &cfg, nil
}
