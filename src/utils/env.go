package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const DEV_ENV_FILENAME = ".env.development"
const PROD_ENV_FILENAME = ".env.production"
const TEST_ENV_FILENAME = ".env.test"

func InitEnvironmentVariables(projectsDir string, goEnv string) error {
	// Production hosts inject env vars directly and ship no .env files
	if os.Getenv("ENV") == "production" {
		log.Info("Running in production environment")
		return nil
	}

	if projectsDir == "" {
		return fmt.Errorf("InitEnvironmentVariables: projectsDir not set")
	}

	envDir := filepath.Join(projectsDir, "options-escrow", "src")

	var envFile string
	switch goEnv {
	case "production":
		envFile = filepath.Join(envDir, PROD_ENV_FILENAME)
	case "test":
		envFile = filepath.Join(envDir, TEST_ENV_FILENAME)
	default:
		envFile = filepath.Join(envDir, DEV_ENV_FILENAME)
	}

	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load %s file: %v", envFile, err)
	}

	return nil
}

func GetEnv(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("environment variable %s not set", name)
	}

	return value, nil
}
