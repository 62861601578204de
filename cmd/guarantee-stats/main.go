package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zxyuan/guarantee-stats/internal/config"
	"github.com/zxyuan/guarantee-stats/internal/engine"
	"github.com/zxyuan/guarantee-stats/internal/formula"
	"github.com/zxyuan/guarantee-stats/internal/ingest"
	"github.com/zxyuan/guarantee-stats/internal/server"
	"github.com/zxyuan/guarantee-stats/pkg/ledger"
	"github.com/zxyuan/guarantee-stats/pkg/output"
)

var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info" // Default to info level
	}

	// Parse log level
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	// Determine output format
	format := loggingConfig.Format
	if format == "" {
		format = "json" // Default to JSON for production
	}

	// Configure encoder
	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	// Configure output file if specified
	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

// loadLedger reads one ledger file, by extension.
func loadLedger(path string, mapping ingest.Mapping, roster ingest.Roster, logger *zap.Logger) (ledger.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ingest.LoadCSV(path, mapping, roster, logger)
	}
	return ingest.LoadWorkbook(path, mapping, roster, logger)
}

func loadTables(conf *config.Configuration, logger *zap.Logger) (map[string]ledger.Table, error) {
	var (
		mapping ingest.Mapping
		roster  ingest.Roster
		err     error
	)
	if conf.Classification != "" {
		mapping, roster, err = ingest.LoadClassification(conf.Classification)
		if err != nil {
			return nil, err
		}
	}

	tables := make(map[string]ledger.Table)

	if conf.Ledger.Lending != "" {
		tbl, err := loadLedger(conf.Ledger.Lending, mapping, roster, logger)
		if err != nil {
			return nil, err
		}
		for line, lineTbl := range ingest.SplitLending(tbl, logger) {
			tables[line] = lineTbl
		}
	}
	if conf.Ledger.GuaranteeLetter != "" {
		tbl, err := loadLedger(conf.Ledger.GuaranteeLetter, mapping, roster, logger)
		if err != nil {
			return nil, err
		}
		tables[ledger.LineGuaranteeLetter] = tbl
	}
	if conf.Ledger.Compensation != "" {
		tbl, err := loadLedger(conf.Ledger.Compensation, mapping, roster, logger)
		if err != nil {
			return nil, err
		}
		tables[ledger.LineCompensation] = tbl
	}

	return tables, nil
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", config.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, xlsx")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	listen := flag.Bool("listen", false, "serve the statistics API over HTTP instead of running once")
	flag.Parse()

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return
	}

	// Initialize logging based on config and CLI override
	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *listen {
		address := conf.Server.Address
		if address == "" {
			address = ":8080"
		}
		handler := server.NewHandler(logger, conf.Server.MaxUploadSize, version)
		logger.Info("listening",
			zap.String("op", "main"),
			zap.String("address", address),
		)
		if err := http.ListenAndServe(address, handler); err != nil {
			logger.Fatal("server stopped",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		return
	}

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = config.OutputFormatPretty
	}

	err = config.ValidateOutputFormat(outputFormat)
	if err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	// Validate configuration and display any warnings
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	asOf, err := conf.AsOf()
	if err != nil {
		logger.Fatal("failed to parse reporting date",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	tables, err := loadTables(conf, logger)
	if err != nil {
		logger.Fatal("failed to load ledger files",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	var stages []formula.Stage
	if conf.Template != "" {
		stages, err = formula.LoadTemplate(conf.Template)
		if err != nil {
			logger.Fatal("failed to load report template",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	results, err := engine.Run(logger, engine.Input{
		AsOf:   asOf,
		Tables: tables,
		Stages: stages,
		Prior: engine.PriorPeriod{
			MonthEndBalance: conf.Prior.MonthEndBalance,
			YearEndBalance:  conf.Prior.YearEndBalance,
			YearAgoBalance:  conf.Prior.YearAgoBalance,
		},
		Overrides: conf.Overrides,
		Ceiling:   conf.Ceiling(),
		TopN:      conf.TopN(),
		Strict:    conf.StrictFormulas,
	})
	if err != nil {
		logger.Fatal("failed to compute statistics",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	// Handle output.
	switch outputFormat {
	case config.OutputFormatPretty:
		output.PrettyFormat(results)
		output.AuditFormat(results)
	case config.OutputFormatCSV:
		output.CsvFormat(results)
	case config.OutputFormatXLSX:
		file := conf.Output.File
		if file == "" {
			file = "guarantee-stats.xlsx"
		}
		if err := output.WriteXlsx(file, results); err != nil {
			logger.Fatal("failed to write workbook",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		logger.Info("wrote results workbook",
			zap.String("op", "main"),
			zap.String("file", file),
		)
	}
}
