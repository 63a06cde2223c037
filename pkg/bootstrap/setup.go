package bootstrap

import (
	"fmt"
	"os"

	"marketguard/internal/config"
	"marketguard/internal/logger"
	"marketguard/pkg/logging"
)

// ConfigFileEnv names the variable consulted when --config is not given.
const ConfigFileEnv = "CONFIG_FILE"

// Setup loads the config file and builds the service logger. Failures are
// reported on the early log since no structured logger exists yet.
func Setup(configFile, serviceName string) (*config.Config, logger.Logger, error) {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv(ConfigFileEnv)
	}
	if configFile == "" {
		earlyLog.Error("Config file is required. Use --config flag or %s environment variable", ConfigFileEnv)
		return nil, nil, fmt.Errorf("config file is required")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return nil, nil, err
	}
	if sugared, ok := log.(*logger.SugaredLogger); ok {
		sugared.SetServiceName(serviceName)
	}

	return cfg, log, nil
}
