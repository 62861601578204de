// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/zxyuan/guarantee-stats/internal/calculator"
	"github.com/zxyuan/guarantee-stats/pkg/dateutil"
)

// Configuration holds all configuration for guarantee-stats.
type Configuration struct {
	AsOfDate       string
	Ledger         LedgerFiles
	Classification string
	Template       string

	Prior     PriorPeriod
	Overrides map[string]float64

	Thresholds     Thresholds
	StrictFormulas bool

	Logging LoggingConfig `yaml:"logging,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
}

// LedgerFiles lists the per-line spreadsheet paths. The lending file feeds
// both the traditional and batch lines; the other lines are optional.
type LedgerFiles struct {
	Lending         string
	GuaranteeLetter string
	Compensation    string
}

// PriorPeriod holds the three manually entered balances from earlier
// reporting periods.
type PriorPeriod struct {
	MonthEndBalance float64
	YearEndBalance  float64
	YearAgoBalance  float64
}

// Thresholds parameterizes the exposure sets.
type Thresholds struct {
	BalanceCeiling float64
	TopCustomers   int
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, xlsx
	File   string `yaml:"file,omitempty"`   // destination for xlsx output
}

// ServerConfig holds the embedded web server options.
type ServerConfig struct {
	Address       string `yaml:"address,omitempty"`
	MaxUploadSize int64  `yaml:"maxUploadSize,omitempty"`
}

// Output format names.
const (
	OutputFormatPretty = "pretty"
	OutputFormatCSV    = "csv"
	OutputFormatXLSX   = "xlsx"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = "config.yaml"

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := viper.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// AsOf parses the configured reporting date; an empty value means today.
func (c *Configuration) AsOf() (time.Time, error) {
	if c.AsOfDate == "" {
		return dateutil.Midnight(time.Now()), nil
	}
	t, err := time.Parse(dateutil.DateLayout, c.AsOfDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid asOfDate %q, expected %s", c.AsOfDate, dateutil.DateLayout)
	}
	return t, nil
}

// Ceiling returns the configured under-ceiling threshold or its default.
func (c *Configuration) Ceiling() float64 {
	if c.Thresholds.BalanceCeiling > 0 {
		return c.Thresholds.BalanceCeiling
	}
	return calculator.DefaultCeiling
}

// TopN returns the configured top-customer count or its default.
func (c *Configuration) TopN() int {
	if c.Thresholds.TopCustomers > 0 {
		return c.Thresholds.TopCustomers
	}
	return calculator.DefaultTopN
}

// ValidateOutputFormat checks an output format name.
func ValidateOutputFormat(format string) error {
	switch format {
	case OutputFormatPretty, OutputFormatCSV, OutputFormatXLSX:
		return nil
	}
	return fmt.Errorf("invalid output format %s; must be one of: pretty, csv, xlsx", format)
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.AsOfDate == "" {
		warnings = append(warnings, "asOfDate not set; defaulting to today")
	} else if _, err := time.Parse(dateutil.DateLayout, c.AsOfDate); err != nil {
		warnings = append(warnings, fmt.Sprintf("asOfDate %q does not parse as %s", c.AsOfDate, dateutil.DateLayout))
	}

	if c.Ledger.Lending == "" && c.Ledger.GuaranteeLetter == "" && c.Ledger.Compensation == "" {
		warnings = append(warnings, "no ledger files configured; nothing to compute")
	}
	if c.Ledger.Lending != "" && c.Classification == "" {
		warnings = append(warnings, "lending ledger configured without a classification workbook; rows cannot be split into traditional and batch lines")
	}
	if c.Template == "" {
		warnings = append(warnings, "no report template configured; only per-line metrics will be produced")
	}
	if c.Thresholds.BalanceCeiling < 0 {
		warnings = append(warnings, "thresholds.balanceCeiling is negative; using default")
	}
	if c.Thresholds.TopCustomers < 0 {
		warnings = append(warnings, "thresholds.topCustomers is negative; using default")
	}
	if c.Output.Format != "" {
		if err := ValidateOutputFormat(c.Output.Format); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	return warnings
}
