// Package config loads deployment-wide defaults for the CLI using Viper,
// the way the teacher's DMG device package loaded its own defaults: a
// config file search path, environment-variable overrides, and a
// mapstructure-tagged settings struct with hardcoded fallbacks.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Mount holds the defaults applied when the CLI isn't given an explicit
// --opts string.
type Mount struct {
	DefaultVolumeSlot uint32 `mapstructure:"default_volume_slot"`
	DefaultUid        int64  `mapstructure:"default_uid"` // -1 means unset
	DefaultGid        int64  `mapstructure:"default_gid"`
}

// Load reads apfscore-config.{yaml,json,...} from the usual search path,
// falling back to defaults when no file is found. A missing config file is
// not an error; a malformed one is.
func Load() (Mount, error) {
	v := viper.New()
	v.SetConfigName("apfscore-config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.apfscore")
	v.AddConfigPath("/etc/apfscore")

	v.SetDefault("default_volume_slot", 0)
	v.SetDefault("default_uid", -1)
	v.SetDefault("default_gid", -1)

	v.SetEnvPrefix("APFSCORE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Mount{}, fmt.Errorf("read config: %w", err)
		}
	}

	var m Mount
	if err := v.Unmarshal(&m); err != nil {
		return Mount{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return m, nil
}

// OptsString renders m as the vol=/uid=/gid= option string pkg/options
// parses, omitting uid/gid when left at their unset sentinel.
func (m Mount) OptsString() string {
	s := fmt.Sprintf("vol=%d", m.DefaultVolumeSlot)
	if m.DefaultUid >= 0 {
		s += fmt.Sprintf(",uid=%d", m.DefaultUid)
	}
	if m.DefaultGid >= 0 {
		s += fmt.Sprintf(",gid=%d", m.DefaultGid)
	}
	return s
}
