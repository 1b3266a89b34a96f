package pgload

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Record is one logical line of the source file split on the delimiter.
// Every field is carried as text; no type coercion happens on the way in.
type Record []string

// Batch is a contiguous run of records committed in a single transaction.
// Batch i covers source records [i*B, min((i+1)*B, total)).
type Batch struct {
	// Index is the zero-based batch number.
	Index int64

	// FirstLine is the zero-based record offset of Records[0] in the source.
	FirstLine int64

	Records []Record
}

// Len returns the number of records in the batch.
func (b Batch) Len() int {
	return len(b.Records)
}

// BatchState is the lifecycle state of a batch inside the insertion executor.
//
//	Pending -> Attempting -> Committed
//	                      -> RolledBack -> Attempting (retry)
//	                      -> Failed
type BatchState int

const (
	BatchPending BatchState = iota
	BatchAttempting
	BatchRolledBack
	BatchCommitted
	BatchFailed
)

// String returns a human-readable representation of the state.
func (s BatchState) String() string {
	switch s {
	case BatchPending:
		return "PENDING"
	case BatchAttempting:
		return "ATTEMPTING"
	case BatchRolledBack:
		return "ROLLED_BACK"
	case BatchCommitted:
		return "COMMITTED"
	case BatchFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// IsTerminal reports whether no further transition can leave the state.
func (s BatchState) IsTerminal() bool {
	return s == BatchCommitted || s == BatchFailed
}

// ResumeDecision is the operator's answer when the destination already holds rows.
type ResumeDecision int

const (
	// ResumeUndecided means no usable answer was given. The load must not proceed.
	ResumeUndecided ResumeDecision = iota
	// ResumeContinue keeps existing rows and continues from the batch they end in.
	ResumeContinue
	// ResumeRestart truncates the destination and loads from the first record.
	ResumeRestart
)

// String returns a human-readable representation of the decision.
func (d ResumeDecision) String() string {
	switch d {
	case ResumeUndecided:
		return "undecided"
	case ResumeContinue:
		return "continue"
	case ResumeRestart:
		return "restart"
	default:
		return fmt.Sprintf("Unknown(%d)", d)
	}
}

// InsertMode selects how a batch is written inside its transaction.
type InsertMode string

const (
	// InsertModeValues writes multi-row INSERT ... VALUES statements.
	InsertModeValues InsertMode = "insert"
	// InsertModeCopy uses the destination's bulk copy protocol when available.
	InsertModeCopy InsertMode = "copy"
)

// IsValid returns true if the mode is a known value.
func (m InsertMode) IsValid() bool {
	return m == InsertModeValues || m == InsertModeCopy
}

// FailurePolicy tells the orchestration loop what to do after a batch fails
// and the reader has been repositioned to the batch's first record.
type FailurePolicy string

const (
	// FailureStop ends the run. The next run resumes from the destination row count.
	FailureStop FailurePolicy = "stop"
	// FailureRetry re-reads the failed window and submits it again with a fresh
	// retry budget, up to LoadConfig.FailureRounds times, before stopping.
	FailureRetry FailurePolicy = "retry"
)

// IsValid returns true if the policy is a known value.
func (p FailurePolicy) IsValid() bool {
	return p == FailureStop || p == FailureRetry
}

// Driver names a destination database family.
type Driver string

const (
	DriverPostgres  Driver = "postgres"
	DriverMySQL     Driver = "mysql"
	DriverSQLite    Driver = "sqlite"
	DriverSQLServer Driver = "sqlserver"
)

// ParseDriver maps a user-supplied driver name (including common aliases) to a Driver.
func ParseDriver(name string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "postgres", "postgresql", "pg", "pgx":
		return DriverPostgres, nil
	case "mysql", "mariadb":
		return DriverMySQL, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "sqlserver", "mssql":
		return DriverSQLServer, nil
	default:
		return "", fmt.Errorf("%q: %w", name, ErrUnsupportedDriver)
	}
}

// LoadConfig contains all parameters needed for a load run.
type LoadConfig struct {
	// SourcePath is the delimited text file to load.
	SourcePath string

	// Delimiter separates fields within a line. Defaults to ",".
	Delimiter string

	// Encoding names the source text encoding ("utf-8", "utf-16", "latin1", "windows-1252").
	Encoding string

	// Table is the destination table, optionally schema-qualified ("schema.table").
	Table string

	// Columns overrides the destination column list. When empty the columns are
	// taken from the header line, or named col0..colN-1 without a header.
	Columns []string

	// CreateTable issues CREATE TABLE IF NOT EXISTS before loading.
	CreateTable bool

	// BatchSize is the number of records per transaction.
	BatchSize int

	// Mode selects multi-row INSERT or bulk COPY.
	Mode InsertMode

	// Driver selects the destination database family.
	Driver Driver

	// OnFailure selects what happens after a batch fails. Defaults to FailureStop.
	OnFailure FailurePolicy

	// FailureRounds caps how many times a failed window is resubmitted under FailureRetry.
	FailureRounds int

	// ConnectionString is the driver-specific DSN. For PostgreSQL this is a
	// URI or ADO.NET string; it is ignored when Connection is set.
	ConnectionString string

	// Connection carries parsed PostgreSQL parameters, used for cloud IAM authentication.
	Connection *ConnectionConfig

	// RetryMaxAttempts is the number of retries after the first failed attempt of a batch.
	RetryMaxAttempts int

	// RetryInitialDelay and RetryMaxDelay bound the backoff between attempts.
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration

	// Timeout is the global timeout for the entire run. Zero means no timeout.
	Timeout time.Duration

	// LogFile receives a copy of every log line when set.
	LogFile string

	// Verbose enables detailed logging
	Verbose bool
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *LoadConfig) ApplyDefaults() {
	if c.Delimiter == "" {
		c.Delimiter = DefaultDelimiter
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Mode == "" {
		c.Mode = InsertModeValues
	}
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if c.OnFailure == "" {
		c.OnFailure = FailureStop
	}
	if c.OnFailure == FailureRetry && c.FailureRounds == 0 {
		c.FailureRounds = DefaultFailureRounds
	}
	if c.RetryInitialDelay == 0 {
		c.RetryInitialDelay = DefaultRetryInitialDelay
	}
	if c.RetryMaxDelay == 0 {
		c.RetryMaxDelay = DefaultRetryMaxDelay
	}
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if c.SourcePath == "" {
		errs = append(errs, fmt.Errorf("SourcePath is required: %w", ErrInvalidConfig))
	}

	if c.Table == "" {
		errs = append(errs, fmt.Errorf("Table is required: %w", ErrInvalidConfig))
	}

	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d: %w", c.BatchSize, ErrInvalidConfig))
	}

	if c.Delimiter == "" {
		errs = append(errs, fmt.Errorf("delimiter cannot be empty: %w", ErrInvalidConfig))
	}

	if c.Mode != "" && !c.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("unknown insert mode %q: %w", c.Mode, ErrInvalidConfig))
	}

	if c.Mode == InsertModeCopy && c.Driver != "" && c.Driver != DriverPostgres {
		errs = append(errs, fmt.Errorf("copy mode requires the postgres driver, got %s: %w", c.Driver, ErrInvalidConfig))
	}

	if c.OnFailure != "" && !c.OnFailure.IsValid() {
		errs = append(errs, fmt.Errorf("unknown failure policy %q: %w", c.OnFailure, ErrInvalidConfig))
	}

	if c.FailureRounds < 0 {
		errs = append(errs, fmt.Errorf("failure rounds cannot be negative: %w", ErrInvalidConfig))
	}

	if c.ConnectionString == "" && c.Connection == nil {
		errs = append(errs, fmt.Errorf("ConnectionString is required: %w", ErrInvalidConfig))
	}

	if c.RetryMaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("max retries cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConnectionConfig represents parsed PostgreSQL connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// AWS RDS IAM authentication (AuthMethodAWSIAM)
	AWSRegion string

	// Google Cloud SQL instance connection name "project:region:instance" (AuthMethodGoogleIAM)
	GoogleInstance string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodCertificate                    // mTLS
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodCertificate:
		return "Certificate"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod maps a configuration value to an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "cert", "certificate":
		return AuthMethodCertificate, nil
	case "aws", "aws-iam", "awsiam":
		return AuthMethodAWSIAM, nil
	case "google", "gcp", "google-iam":
		return AuthMethodGoogleIAM, nil
	case "azure", "entra", "azure-entra-id":
		return AuthMethodAzureEntraID, nil
	default:
		return AuthMethodStandard, fmt.Errorf("%q: %w", s, ErrUnsupportedAuthMethod)
	}
}
