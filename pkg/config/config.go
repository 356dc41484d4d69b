// Package config layers run settings from defaults, an optional YAML
// config file, CSV2OFX_* environment variables, and command-line flags,
// in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/reubano/csv2ofx/pkg/convert"
)

// Config holds the settings shared by the CLI and the server.
type Config struct {
	Format      string `mapstructure:"format"`
	Mapping     string `mapstructure:"mapping"`
	MappingFile string `mapstructure:"mapping-file"`

	DefType      string `mapstructure:"def-type"`
	Start        string `mapstructure:"start"`
	End          string `mapstructure:"end"`
	Collapse     string `mapstructure:"collapse"`
	SplitAccount string `mapstructure:"split-account"`
	ChunkSize    int    `mapstructure:"chunksize"`

	MSMoney       bool   `mapstructure:"ms-money"`
	StrictBalance bool   `mapstructure:"strict-balance"`
	Language      string `mapstructure:"language"`
	DateFormat    string `mapstructure:"date-format"`
	Encoding      string `mapstructure:"encoding"`

	ListenAddr string `mapstructure:"listen-addr"`
}

// Build loads the configuration. cfgFile may be empty; flags may be nil.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("format", "ofx")
	v.SetDefault("mapping", "default")
	v.SetDefault("language", "ENG")
	v.SetDefault("encoding", "utf-8")
	v.SetDefault("chunksize", convert.DefaultChunkSize)
	v.SetDefault("listen-addr", "0.0.0.0:3000")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		// A config.yaml next to the binary is optional.
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("CSV2OFX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Window parses the start and end settings into a date window. Empty
// settings leave the corresponding bound open.
func (c *Config) Window() (start, end time.Time, err error) {
	if c.Start != "" {
		if start, err = convert.ParseDate(c.Start, ""); err != nil {
			return start, end, fmt.Errorf("start: %w", err)
		}
	}
	if c.End != "" {
		if end, err = convert.ParseDate(c.End, ""); err != nil {
			return start, end, fmt.Errorf("end: %w", err)
		}
	}
	return start, end, nil
}
