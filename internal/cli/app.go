package cli

import (
	"fmt"
	"io"
	"strings"

	"dwd-connect/internal/brightsky"
	"dwd-connect/internal/config"
	"dwd-connect/internal/loader"
	"dwd-connect/internal/logger"
	"dwd-connect/internal/storage"

	"github.com/rs/zerolog"
)

// app bundles what every command builds from the configuration.
type app struct {
	conf    *config.Config
	log     zerolog.Logger
	logFile io.Closer
}

// loadApp reads and validates the configuration and sets up logging.
func loadApp() (*app, error) {
	conf, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configFile, err)
	}

	validation := conf.ValidateComplete()
	if validation.HasErrors() {
		fmt.Println("❌ Configuration validation failed:")
		for _, err := range validation.Errors {
			fmt.Printf("  - %s\n", err.Error())
		}
		return nil, fmt.Errorf("configuration has %d validation error(s)", len(validation.Errors))
	}

	// Initialize silent logger for technical details
	a := &app{conf: conf, log: logger.NewSilent()}
	if verbose {
		a.log, a.logFile, err = logger.New(conf.LogFile)
		if err != nil {
			return nil, err
		}
		a.log.Debug().Str("config", configFile).Msg("🔧 Verbose mode enabled")
	}

	return a, nil
}

// close releases the log file opened in verbose mode.
func (a *app) close() error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	return err
}

func (a *app) newClient() *brightsky.Client {
	return brightsky.NewClient(brightsky.Options{
		BaseURL:           a.conf.API.BaseURL,
		RequestsPerSecond: a.conf.API.RateLimit,
		Timeout:           a.conf.API.Timeout,
	}, a.log)
}

func (a *app) newConnector() (storage.Connector, error) {
	storageType := storage.StorageType(a.conf.Storage.Type)
	connector, err := storage.NewConnector(storageType, a.conf.StorageOptions(), a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageType, err)
	}
	return connector, nil
}

func (a *app) newLoader() (*loader.Loader, error) {
	connector, err := a.newConnector()
	if err != nil {
		return nil, err
	}
	return loader.New(connector, a.log), nil
}

// resolveTarget applies the --table and --mode overrides to a configured target.
// table is either "schema.table" or a bare table name in the configured schema.
func resolveTarget(t config.Target, table, mode string) (config.Target, error) {
	if table != "" {
		schema, name, found := strings.Cut(table, ".")
		if found {
			t.Schema, t.Table = schema, name
		} else {
			t.Table = table
		}
	}
	if mode != "" {
		t.Mode = mode
	}

	if !storage.ValidIdentifier(t.Schema) || !storage.ValidIdentifier(t.Table) {
		return t, fmt.Errorf("invalid table %q", t.Schema+"."+t.Table)
	}
	if _, err := loader.ParseMode(t.Mode); err != nil {
		return t, err
	}
	return t, nil
}

func targetName(t config.Target) string {
	return t.Schema + "." + t.Table
}
