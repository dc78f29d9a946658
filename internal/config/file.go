package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML overlay. Only fields present in the file override
// the environment-derived values.
type fileConfig struct {
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`

	BusAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"bus_api"`

	Route struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"route"`

	Catalog struct {
		CacheTTL        string `yaml:"cache_ttl"`
		RefreshInterval string `yaml:"refresh_interval"`
	} `yaml:"catalog"`

	Lists struct {
		Stops     *int `yaml:"stops"`
		Lines     *int `yaml:"lines"`
		Endpoints *int `yaml:"endpoints"`
	} `yaml:"batch_sizes"`

	Location struct {
		Permission *bool  `yaml:"permission"`
		Default    string `yaml:"default"`
	} `yaml:"location"`

	Redis struct {
		Enabled  *bool  `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       *int   `yaml:"db"`
	} `yaml:"redis"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fc.LogLevel != "" {
		cfg.LogLevel = parseLogLevel(fc.LogLevel, cfg.LogLevel)
	}
	setString(&cfg.HTTPAddr, fc.HTTPAddr)
	setString(&cfg.BusAPIURL, fc.BusAPI.URL)
	setString(&cfg.DefaultLocation, fc.Location.Default)
	setString(&cfg.RedisAddr, fc.Redis.Addr)
	setString(&cfg.RedisPassword, fc.Redis.Password)

	durations := []struct {
		dst *time.Duration
		src string
	}{
		{&cfg.BusAPITimeout, fc.BusAPI.Timeout},
		{&cfg.RouteTimeout, fc.Route.Timeout},
		{&cfg.CatalogCacheTTL, fc.Catalog.CacheTTL},
		{&cfg.CatalogRefreshInterval, fc.Catalog.RefreshInterval},
	}
	for _, d := range durations {
		if d.src == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.src)
		if err != nil {
			return fmt.Errorf("parsing config file duration %q: %w", d.src, err)
		}
		*d.dst = parsed
	}

	setInt(&cfg.StopsBatchSize, fc.Lists.Stops)
	setInt(&cfg.LinesBatchSize, fc.Lists.Lines)
	setInt(&cfg.EndpointsBatchSize, fc.Lists.Endpoints)
	setInt(&cfg.RedisDB, fc.Redis.DB)
	if fc.Location.Permission != nil {
		cfg.LocationPermission = *fc.Location.Permission
	}
	if fc.Redis.Enabled != nil {
		cfg.RedisEnabled = *fc.Redis.Enabled
	}
	if len(fc.CORSAllowedOrigins) > 0 {
		cfg.CORSAllowedOrigins = fc.CORSAllowedOrigins
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
