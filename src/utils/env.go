package utils

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const DEV_ENV_FILENAME = ".env.development"
const PROD_ENV_FILENAME = ".env.production"

// InitEnvironmentVariables loads a .env file for local runs. Production
// deployments inject the environment directly and skip the file.
func InitEnvironmentVariables() error {
	if os.Getenv("ENV") == "production" {
		log.Info("Running in production environment")
		return nil
	}

	envFile := DEV_ENV_FILENAME
	if os.Getenv("GO_ENV") == "production" {
		envFile = PROD_ENV_FILENAME
	}

	if err := godotenv.Load(envFile); err != nil {
		log.Warnf("InitEnvironmentVariables: no %s file loaded: %v", envFile, err)
	}

	return nil
}
