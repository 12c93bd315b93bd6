package config

import "errors"

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps failures reading the YAML file or the environment.
	ErrLoadConfig = errors.New("load config failed")
	// ErrNoDatabase means database_url is empty where a database is required.
	ErrNoDatabase = errors.New("database_url is not configured")
)
