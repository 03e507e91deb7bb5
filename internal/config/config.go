package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend   string
	DataDirectory string
	SQLiteDBPath  string

	// Firestore
	FirestoreProjectID       string
	FirestoreCredentialsFile string

	// Gemini oracle
	GeminiAPIKey string
	GeminiModel  string

	// Auth
	JWTSecret string

	// AMQP (optional purchase event stream)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8082"),

		DataBackend:   getEnv("DATA_BACKEND", "memory"),
		DataDirectory: getEnv("DATA_DIRECTORY", ""),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/economize.db"),

		FirestoreProjectID:       getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreCredentialsFile: getEnv("FIRESTORE_CREDENTIALS_FILE", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "economize"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "purchase_events"),
	}
}

// Validate validates the configuration and returns an error listing
// every problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite", "firestore"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "firestore" {
		if c.FirestoreProjectID == "" {
			errors = append(errors, "Firestore project ID is required when using firestore backend")
		}
		if c.FirestoreCredentialsFile != "" {
			if _, err := os.Stat(c.FirestoreCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Firestore credentials file does not exist: %s", c.FirestoreCredentialsFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
