package config

import "errors"

// ErrInvalidConfig is returned when a config file or override cannot be applied
var ErrInvalidConfig = errors.New("invalid config")
