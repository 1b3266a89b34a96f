package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names read by pgload. libpq's PG* variables are read
// by the db package.
const (
	EnvFile        = "PGLOAD_FILE"
	EnvTable       = "PGLOAD_TABLE"
	EnvColumns     = "PGLOAD_COLUMNS"
	EnvDelimiter   = "PGLOAD_DELIMITER"
	EnvEncoding    = "PGLOAD_ENCODING"
	EnvHasHeader   = "PGLOAD_HAS_HEADER"
	EnvBatchSize   = "PGLOAD_BATCH_SIZE"
	EnvMode        = "PGLOAD_MODE"
	EnvDriver      = "PGLOAD_DRIVER"
	EnvDSN         = "PGLOAD_DSN"
	EnvLogFile     = "PGLOAD_LOG_FILE"
	EnvMaxRetries  = "PGLOAD_MAX_RETRIES"
	EnvOnFailure   = "PGLOAD_ON_FAILURE"
	EnvResume      = "PGLOAD_RESUME"
	EnvTimeout     = "PGLOAD_TIMEOUT"
	EnvCreateTable = "PGLOAD_CREATE_TABLE"
	EnvVerbose     = "PGLOAD_VERBOSE"
)

// DefaultDotEnvFile is loaded when no explicit env file is given.
const DefaultDotEnvFile = ".env"

// Env is a snapshot of the PGLOAD_* variables. Empty means unset.
type Env struct {
	File        string
	Table       string
	Columns     string
	Delimiter   string
	Encoding    string
	HasHeader   string
	BatchSize   string
	Mode        string
	Driver      string
	DSN         string
	LogFile     string
	MaxRetries  string
	OnFailure   string
	Resume      string
	Timeout     string
	CreateTable string
	Verbose     string
}

// EnvFrom builds an Env using lookup, which is os.Getenv outside tests.
func EnvFrom(lookup func(string) string) Env {
	return Env{
		File:        lookup(EnvFile),
		Table:       lookup(EnvTable),
		Columns:     lookup(EnvColumns),
		Delimiter:   lookup(EnvDelimiter),
		Encoding:    lookup(EnvEncoding),
		HasHeader:   lookup(EnvHasHeader),
		BatchSize:   lookup(EnvBatchSize),
		Mode:        lookup(EnvMode),
		Driver:      lookup(EnvDriver),
		DSN:         lookup(EnvDSN),
		LogFile:     lookup(EnvLogFile),
		MaxRetries:  lookup(EnvMaxRetries),
		OnFailure:   lookup(EnvOnFailure),
		Resume:      lookup(EnvResume),
		Timeout:     lookup(EnvTimeout),
		CreateTable: lookup(EnvCreateTable),
		Verbose:     lookup(EnvVerbose),
	}
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. With no paths it loads ./.env
// if present; explicitly named files must exist.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		err := godotenv.Load(DefaultDotEnvFile)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(paths...)
}

// LoadEnv loads .env files and returns the resulting PGLOAD_* snapshot.
func LoadEnv(paths ...string) (Env, error) {
	if err := LoadDotEnv(paths...); err != nil {
		return Env{}, err
	}
	return EnvFrom(os.Getenv), nil
}
