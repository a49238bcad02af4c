// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ApplyFile overlays the values of a yaml config file onto cfg.
// Keys missing from the file keep the value they already had;
// keys that do not map to a config field are an error
func ApplyFile(path string, cfg *LinkConfig) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := v.UnmarshalExact(cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}
