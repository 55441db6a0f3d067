package utils

import (
	"dispatch-backend/models"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-dispatch-jwt-secret"

// GetConfig read the configuration from environment variables or config files
func GetConfig() (*models.Config, error) {
	config, err := Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return config, nil
}

// Load reads .env (when present), then config.json, then environment variables
func Load() (*models.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// config.json may be nested by section
	if v.IsSet("app") {
		flattenNestedConfig(v)
	}

	var config models.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "Dispatch Backend")
	v.SetDefault("app_version", "1.0.0")
	v.SetDefault("app_env", "development")
	v.SetDefault("app_host", "0.0.0.0")
	v.SetDefault("app_port", "8081")

	v.SetDefault("jwt_secret", defaultJWTSecret)

	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("aws_access_key_id", "")
	v.SetDefault("aws_secret_access_key", "")
	v.SetDefault("dynamodb_endpoint", "")
	v.SetDefault("dynamodb_table_prefix", "dev")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("cors_origins", []string{"*"})

	v.SetDefault("basePath", "/api")

	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("max_upload_size_mb", 25)

	v.SetDefault("lock_ttl", 30*time.Second)
	v.SetDefault("lock_wait", 5*time.Second)

	v.SetDefault("mqtt_broker", "")
	v.SetDefault("mqtt_client_id", "dispatch-backend")
	v.SetDefault("mqtt_topic_prefix", "dispatch")

	v.SetDefault("metrics_enabled", true)

	v.SetDefault("worker_sweep_schedule", "0 */1 * * * *")

	// empty means every table of the embedded schema
	v.SetDefault("tables", []string{})
}

// validate checks if all required configuration is provided
func validate(c *models.Config) error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret must not be empty")
	}
	if c.JWTSecret == defaultJWTSecret && c.AppEnv == "production" {
		return fmt.Errorf("JWT_SECRET must be set in production environment")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("lock_ttl must be positive")
	}
	if c.LockWait < 0 {
		return fmt.Errorf("lock_wait must not be negative")
	}
	if c.LockWait >= c.LockTTL {
		return fmt.Errorf("lock_wait (%s) must be shorter than lock_ttl (%s)", c.LockWait, c.LockTTL)
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("max_upload_size_mb must be positive")
	}
	return nil
}

// flattenNestedConfig maps the sectioned config.json layout onto the flat keys
func flattenNestedConfig(v *viper.Viper) {
	nested := map[string]string{
		"app.name":                  "app_name",
		"app.version":               "app_version",
		"app.env":                   "app_env",
		"app.host":                  "app_host",
		"app.port":                  "app_port",
		"jwt.secret":                "jwt_secret",
		"aws.region":                "aws_region",
		"aws.access_key_id":         "aws_access_key_id",
		"aws.secret_access_key":     "aws_secret_access_key",
		"aws.dynamodb_endpoint":     "dynamodb_endpoint",
		"aws.dynamodb_table_prefix": "dynamodb_table_prefix",
		"logging.level":             "log_level",
		"logging.format":            "log_format",
		"uploads.dir":               "upload_dir",
		"uploads.max_size_mb":       "max_upload_size_mb",
		"locks.ttl":                 "lock_ttl",
		"locks.wait":                "lock_wait",
		"mqtt.broker":               "mqtt_broker",
		"mqtt.client_id":            "mqtt_client_id",
		"mqtt.topic_prefix":         "mqtt_topic_prefix",
		"metrics.enabled":           "metrics_enabled",
		"worker.sweep_schedule":     "worker_sweep_schedule",
	}
	for from, to := range nested {
		if v.IsSet(from) {
			v.Set(to, v.Get(from))
		}
	}

	if v.IsSet("cors.origins") {
		v.Set("cors_origins", v.GetStringSlice("cors.origins"))
	}
}

// PrintPrettyJSON takes any struct or map and prints it as pretty JSON
func PrintPrettyJSON(data interface{}) string {
	prettyJSON, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return ""
	}
	return string(prettyJSON)
}

// GenerateUUID returns a new UUID string
func GenerateUUID() string {
	return uuid.New().String()
}
