package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/bp2vpn/bp2vpn/internal/domain/vitals"
	"github.com/bp2vpn/bp2vpn/internal/platform/nhixml"
)

// Default source file names inside the data directory.
const (
	RegistryFile    = "VISHFAM.DBF"
	MeasurementFile = "CO18H.DBF"
)

type Config struct {
	Env          string `mapstructure:"ENV"`
	DataDir      string `mapstructure:"DATA_DIR"`
	FacilityCode string `mapstructure:"FACILITY_CODE"`
	Range        string `mapstructure:"RANGE"`
	StartDate    string `mapstructure:"START_DATE"`
	EndDate      string `mapstructure:"END_DATE"`
	Output       string `mapstructure:"OUTPUT"`
	Zip          bool   `mapstructure:"ZIP"`
	PatientsFile string `mapstructure:"PATIENTS_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "production")
	v.SetDefault("DATA_DIR", ".")
	v.SetDefault("RANGE", string(vitals.PresetThisYear))
	v.SetDefault("OUTPUT", "TOTFA.xml")
	v.SetDefault("ZIP", false)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("DATA_DIR")
	v.BindEnv("FACILITY_CODE")
	v.BindEnv("RANGE")
	v.BindEnv("START_DATE")
	v.BindEnv("END_DATE")
	v.BindEnv("OUTPUT")
	v.BindEnv("ZIP")
	v.BindEnv("PATIENTS_FILE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// RegistryPath is the demographic table inside the data directory.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.DataDir, RegistryFile)
}

// MeasurementPath is the measurement table inside the data directory.
func (c *Config) MeasurementPath() string {
	return filepath.Join(c.DataDir, MeasurementFile)
}

// CustomRange reports whether explicit dates override the preset.
func (c *Config) CustomRange() bool {
	return c.StartDate != "" || c.EndDate != ""
}

// Window resolves the configured date range into a scan window. Call
// Validate first; Window assumes the dates already parsed.
func (c *Config) Window(now time.Time) (vitals.Window, error) {
	if !c.CustomRange() {
		return vitals.PresetWindow(vitals.Preset(c.Range), now)
	}
	start, err := time.ParseInLocation("2006-01-02", c.StartDate, time.Local)
	if err != nil {
		return vitals.Window{}, fmt.Errorf("START_DATE: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02", c.EndDate, time.Local)
	if err != nil {
		return vitals.Window{}, fmt.Errorf("END_DATE: %w", err)
	}
	return vitals.CustomWindow(start, end)
}

// Validate checks everything that can be checked before touching the
// filesystem: the facility-code shape and the date-range settings.
func (c *Config) Validate() error {
	if c.FacilityCode == "" {
		return fmt.Errorf("FACILITY_CODE is required")
	}
	if err := nhixml.ValidateFacilityCode(c.FacilityCode); err != nil {
		return err
	}

	if c.CustomRange() {
		if c.StartDate == "" || c.EndDate == "" {
			return fmt.Errorf("START_DATE and END_DATE must both be set for a custom range")
		}
		if _, err := c.Window(time.Now()); err != nil {
			return err
		}
	} else if _, err := vitals.PresetWindow(vitals.Preset(c.Range), time.Now()); err != nil {
		return fmt.Errorf("RANGE must be one of this-year, 3-months, 6-months, 1-year: got %q", c.Range)
	}

	if c.Output == "" {
		return fmt.Errorf("OUTPUT must not be empty")
	}
	return nil
}

// LookupDir is where the optional side tables live; they share the data
// directory with the mandatory sources.
func (c *Config) LookupDir() string {
	return c.DataDir
}
