package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/pgload/internal/schema"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// Flags carries command line values. A nil pointer means the flag was not
// given, so the environment, then pgload.yaml, then the default applies.
type Flags struct {
	SourcePath    string
	Table         *string
	Columns       []string
	Delimiter     *string
	Encoding      *string
	HasHeader     *bool
	CreateTable   *bool
	BatchSize     *int
	Mode          *string
	Driver        *string
	DSN           *string
	OnFailure     *string
	FailureRounds *int
	MaxRetries    *int
	Timeout       *time.Duration
	LogFile       *string
	Verbose       *bool

	// Resume is set from --resume / --restart.
	Resume pgload.ResumeDecision
}

// Settings is the fully resolved configuration of a run.
type Settings struct {
	Load pgload.LoadConfig

	// HasHeader is nil when nothing decided it and the operator must be asked.
	HasHeader *bool

	// Resume is ResumeUndecided when the operator must be asked.
	Resume pgload.ResumeDecision

	// Project is the parsed pgload.yaml, or nil when there was none.
	Project *ProjectConfig
}

// Build resolves every setting with precedence flag > env > pgload.yaml > default.
// Malformed values are reported together, each wrapping pgload.ErrInvalidConfig.
// Build does not validate the result; call Settings.Load.Validate once the
// connection has been attached.
func Build(flags Flags, env Env, project *ProjectConfig) (*Settings, error) {
	var p ProjectConfig
	if project != nil {
		p = *project
	}
	var errs []error
	s := &Settings{Project: project}
	c := &s.Load

	c.SourcePath = firstNonEmpty(flags.SourcePath, env.File, p.Source.Path)
	c.Table = firstNonEmpty(deref(flags.Table), env.Table, p.Destination.Table)
	if c.Table == "" && c.SourcePath != "" {
		c.Table = schema.DefaultTableName(c.SourcePath)
	}

	switch {
	case len(flags.Columns) > 0:
		c.Columns = flags.Columns
	case env.Columns != "":
		c.Columns = splitList(env.Columns)
	default:
		c.Columns = p.Destination.Columns
	}

	c.Delimiter = firstNonEmpty(deref(flags.Delimiter), env.Delimiter, p.Source.Delimiter)
	c.Encoding = firstNonEmpty(deref(flags.Encoding), env.Encoding, p.Source.Encoding)
	c.ConnectionString = firstNonEmpty(deref(flags.DSN), env.DSN, p.Destination.DSN)
	c.LogFile = firstNonEmpty(deref(flags.LogFile), env.LogFile, p.Log.File)

	driver := firstNonEmpty(deref(flags.Driver), env.Driver, p.Destination.Driver)
	if d, err := pgload.ParseDriver(driver); err != nil {
		errs = append(errs, fmt.Errorf("driver: %w: %w", pgload.ErrInvalidConfig, err))
	} else {
		c.Driver = d
	}

	c.Mode = pgload.InsertMode(strings.ToLower(firstNonEmpty(deref(flags.Mode), env.Mode, p.Load.Mode)))
	c.OnFailure = pgload.FailurePolicy(strings.ToLower(firstNonEmpty(deref(flags.OnFailure), env.OnFailure, p.Load.OnFailure)))

	var err error
	if s.HasHeader, err = resolveBool(flags.HasHeader, env.HasHeader, p.Source.HasHeader, EnvHasHeader); err != nil {
		errs = append(errs, err)
	}
	createTable, err := resolveBool(flags.CreateTable, env.CreateTable, p.Destination.CreateTable, EnvCreateTable)
	if err != nil {
		errs = append(errs, err)
	}
	c.CreateTable = createTable != nil && *createTable

	verbose, err := resolveBool(flags.Verbose, env.Verbose, &p.Log.Verbose, EnvVerbose)
	if err != nil {
		errs = append(errs, err)
	}
	c.Verbose = verbose != nil && *verbose

	if c.BatchSize, err = resolveInt(flags.BatchSize, env.BatchSize, p.Load.BatchSize, EnvBatchSize); err != nil {
		errs = append(errs, err)
	} else if (flags.BatchSize != nil || env.BatchSize != "") && c.BatchSize <= 0 {
		// Zero would otherwise be replaced by the default.
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d: %w", c.BatchSize, pgload.ErrInvalidConfig))
	}
	if c.FailureRounds, err = resolveInt(flags.FailureRounds, "", p.Load.FailureRounds, ""); err != nil {
		errs = append(errs, err)
	}

	maxRetries := pgload.DefaultRetryMaxAttempts
	if p.Load.Retry.MaxAttempts != nil {
		maxRetries = *p.Load.Retry.MaxAttempts
	}
	if c.RetryMaxAttempts, err = resolveInt(flags.MaxRetries, env.MaxRetries, maxRetries, EnvMaxRetries); err != nil {
		errs = append(errs, err)
	}

	if c.RetryInitialDelay, err = parseDuration(p.Load.Retry.InitialDelay, "load.retry.initial_delay"); err != nil {
		errs = append(errs, err)
	}
	if c.RetryMaxDelay, err = parseDuration(p.Load.Retry.MaxDelay, "load.retry.max_delay"); err != nil {
		errs = append(errs, err)
	}

	if flags.Timeout != nil {
		c.Timeout = *flags.Timeout
	} else if c.Timeout, err = parseDuration(firstNonEmpty(env.Timeout, p.Load.Timeout), "timeout"); err != nil {
		errs = append(errs, err)
	}

	s.Resume = flags.Resume
	if s.Resume == pgload.ResumeUndecided {
		if s.Resume, err = ParseResume(firstNonEmpty(env.Resume, p.Load.Resume)); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	c.ApplyDefaults()
	return s, nil
}

// ParseResume maps "continue"/"restart" (and y/n, as the interactive prompt
// accepts) to a decision. An empty string is ResumeUndecided.
func ParseResume(s string) (pgload.ResumeDecision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return pgload.ResumeUndecided, nil
	case "continue", "resume", "y", "yes":
		return pgload.ResumeContinue, nil
	case "restart", "truncate", "n", "no":
		return pgload.ResumeRestart, nil
	default:
		return pgload.ResumeUndecided, fmt.Errorf("resume: unknown value %q (want continue or restart): %w", s, pgload.ErrInvalidConfig)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func resolveBool(flag *bool, env string, yaml *bool, envName string) (*bool, error) {
	if flag != nil {
		return flag, nil
	}
	if env != "" {
		v, err := strconv.ParseBool(env)
		if err != nil {
			return nil, fmt.Errorf("$%s=%q is not a boolean: %w", envName, env, pgload.ErrInvalidConfig)
		}
		return &v, nil
	}
	return yaml, nil
}

func resolveInt(flag *int, env string, yaml int, envName string) (int, error) {
	if flag != nil {
		return *flag, nil
	}
	if env != "" {
		v, err := strconv.Atoi(strings.TrimSpace(env))
		if err != nil {
			return 0, fmt.Errorf("$%s=%q is not an integer: %w", envName, env, pgload.ErrInvalidConfig)
		}
		return v, nil
	}
	return yaml, nil
}

func parseDuration(s, field string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, s, pgload.ErrInvalidConfig)
	}
	return d, nil
}
