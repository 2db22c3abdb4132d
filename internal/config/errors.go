package config

import (
	"errors"
)

// Sentinel error kinds returned by Load. Callers match them with errors.Is;
// the wrapped message names the offending key.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
	ErrLoadDotenv    = errors.New("load dotenv failed")
)
