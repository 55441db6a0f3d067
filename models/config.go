package models

import "time"

// Config holds all configuration for the application
type Config struct {
	// Application
	AppName    string `mapstructure:"app_name"`
	AppVersion string `mapstructure:"app_version"`
	AppEnv     string `mapstructure:"app_env"`
	AppHost    string `mapstructure:"app_host"`
	AppPort    string `mapstructure:"app_port"`

	// JWT (verification only)
	JWTSecret string `mapstructure:"jwt_secret"`

	// AWS
	AWSRegion           string `mapstructure:"aws_region"`
	AWSAccessKeyID      string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey  string `mapstructure:"aws_secret_access_key"`
	DynamoDBEndpoint    string `mapstructure:"dynamodb_endpoint"`
	DynamoDBTablePrefix string `mapstructure:"dynamodb_table_prefix"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// CORS
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Base Path
	BasePath string `mapstructure:"basePath"`

	// Attachments
	UploadDir       string `mapstructure:"upload_dir"`
	MaxUploadSizeMB int64  `mapstructure:"max_upload_size_mb"`

	// Technician slot locks
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
	LockWait time.Duration `mapstructure:"lock_wait"`

	// MQTT lifecycle events; disabled when broker is empty
	MQTTBroker      string `mapstructure:"mqtt_broker"`
	MQTTClientID    string `mapstructure:"mqtt_client_id"`
	MQTTTopicPrefix string `mapstructure:"mqtt_topic_prefix"`

	MetricsEnabled bool `mapstructure:"metrics_enabled"`

	// Worker
	WorkerSweepSchedule string `mapstructure:"worker_sweep_schedule"`

	Tables []string `mapstructure:"tables"`
}

// TableName returns the prefixed storage table name for a base name
func (c *Config) TableName(base string) string {
	if c.DynamoDBTablePrefix == "" {
		return base
	}
	return c.DynamoDBTablePrefix + "_" + base
}
