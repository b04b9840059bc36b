// Package config loads the mirror command's settings from a YAML file,
// MIRROR_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the mirror command configuration.
type Config struct {
	Width              int           `mapstructure:"width" yaml:"width"`
	Height             int           `mapstructure:"height" yaml:"height"`
	Fullscreen         bool          `mapstructure:"fullscreen" yaml:"fullscreen"`
	FPS                int           `mapstructure:"fps" yaml:"fps"`
	Backend            string        `mapstructure:"backend" yaml:"backend"`
	Capture            string        `mapstructure:"capture" yaml:"capture"`
	CaptureTimeout     time.Duration `mapstructure:"capture_timeout" yaml:"capture_timeout"`
	Validation         bool          `mapstructure:"validation" yaml:"validation"`
	GPUValidation      bool          `mapstructure:"gpu_validation" yaml:"gpu_validation"`
	SideLength         float64       `mapstructure:"side_length" yaml:"side_length"`
	ExcludeFromCapture bool          `mapstructure:"exclude_from_capture" yaml:"exclude_from_capture"`
	KeepTopMost        bool          `mapstructure:"keep_top_most" yaml:"keep_top_most"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat          string        `mapstructure:"log_format" yaml:"log_format"`
}

// Default returns the built-in settings: a top-most window covering the
// primary monitor's work area, redrawn at 60 frames per second on the
// registered default backends. Width and Height apply when Fullscreen is
// off.
func Default() *Config {
	return &Config{
		Width:              1024,
		Height:             768,
		Fullscreen:         true,
		FPS:                60,
		SideLength:         0,
		ExcludeFromCapture: true,
		KeepTopMost:        true,
		LogLevel:           "info",
		LogFormat:          "auto",
	}
}

// setDefaults registers every key so environment variables and flags bind
// even when the file omits them.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("width", d.Width)
	v.SetDefault("height", d.Height)
	v.SetDefault("fullscreen", d.Fullscreen)
	v.SetDefault("fps", d.FPS)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("capture", d.Capture)
	v.SetDefault("capture_timeout", d.CaptureTimeout)
	v.SetDefault("validation", d.Validation)
	v.SetDefault("gpu_validation", d.GPUValidation)
	v.SetDefault("side_length", d.SideLength)
	v.SetDefault("exclude_from_capture", d.ExcludeFromCapture)
	v.SetDefault("keep_top_most", d.KeepTopMost)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// Load reads cfgFile, or mirror.yaml from the user config directory and the
// working directory when cfgFile is empty. A missing default file is not an
// error. Flags set on the command line override everything else; a flag
// named log-level binds the log_level key.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("mirror")
		v.SetConfigType("yaml")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MIRROR")
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// File returns the path of the default configuration file.
func File() string {
	return filepath.Join(configDir(), "mirror.yaml")
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mirror")
}
