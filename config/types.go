package config

import "time"

type AppConfig struct {
	DBDriver        string          `yaml:"db_driver" env:"SAKER_DB_DRIVER" env-default:"sqlite"`
	DBURL           string          `yaml:"db_url" env:"SAKER_DB_URL" env-default:""`
	DBPath          string          `yaml:"db_path" env:"SAKER_DB_PATH" env-default:"data/saker.db"`
	ListenAddr      string          `yaml:"listen_addr" env:"SAKER_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	AppEnv          string          `yaml:"app_env" env:"SAKER_APP_ENV"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" env:"SAKER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	Registers       RegistersConfig `yaml:"registers"`
	Retention       RetentionConfig `yaml:"retention"`
}

type RegistersConfig struct {
	// ListLimit caps register listings; 0 means no cap.
	ListLimit int `yaml:"list_limit" env:"SAKER_REGISTERS_LIST_LIMIT" env-default:"0"`
}

type RetentionConfig struct {
	// Enabled switches the housekeeping sweep on. The sweep only ever removes
	// version and audit streams whose owner has been deleted.
	Enabled  bool   `yaml:"enabled" env:"SAKER_RETENTION_ENABLED" env-default:"false"`
	Days     int    `yaml:"days" env:"SAKER_RETENTION_DAYS" env-default:"365"`
	Schedule string `yaml:"schedule" env:"SAKER_RETENTION_SCHEDULE" env-default:"0 3 * * *"`
}
