package config

import (
	"errors"
	"fmt"
)

// ErrLoadConfig wraps failures reading .env, the YAML file or the environment.
// ErrInvalidConfig wraps every Validate failure.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	// ErrUnknownDriver is an ErrInvalidConfig for a db_driver other than sqlite or postgres.
	ErrUnknownDriver = fmt.Errorf("%w: unknown db_driver", ErrInvalidConfig)
)
