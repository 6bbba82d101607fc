package deploy

import "fmt"

// Error kinds the engine distinguishes, per the fatality table: configuration
// problems are fatal before any work begins, endpoint and SQL errors abort
// the run, a failed file transfer does not stop the other transfers and a
// failed seed spec does not stop the other specs (either still fails the
// run), and cache errors are non-fatal in both directions.

// ConfigurationError marks a missing field, illegal type, or mutually
// exclusive flag combination found while validating a loaded configuration.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: field %q: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// EndpointError wraps an authentication, DNS/TCP, or SFTP-subsystem
// failure, identifying the offending endpoint.
type EndpointError struct {
	Endpoint string
	Err      error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("endpoint %s: %v", e.Endpoint, e.Err)
}

func (e *EndpointError) Unwrap() error { return e.Err }

// TransferError records the failure of a single file's read, write, or
// delete after retries are exhausted. The sync engine continues with other
// files in the plan; a run with any TransferError exits nonzero and skips
// the cache write.
type TransferError struct {
	Path string
	Op   string // "read", "write", or "delete"
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// SqlError marks a statement rejected by the server. Fatal to the
// containing file and the current phase; subsequent phases are skipped.
type SqlError struct {
	File      string
	Statement string
	Err       error
}

func (e *SqlError) Error() string {
	return fmt.Sprintf("sql error in %s: %v", e.File, e.Err)
}

func (e *SqlError) Unwrap() error { return e.Err }

// SeedError marks a JSON parse failure, a missing required binding field
// with no default, or a mis-shaped nested array. Fatal to the containing
// spec only; subsequent specs still run.
type SeedError struct {
	Spec string
	Err  error
}

func (e *SeedError) Error() string {
	return fmt.Sprintf("seed error in %s: %v", e.Spec, e.Err)
}

func (e *SeedError) Unwrap() error { return e.Err }

// CacheError marks a cache read or write failure. A read failure at
// startup is non-fatal (treated as "no cache"); a write failure at the end
// of a successful run is logged loudly but does not fail the deploy.
type CacheError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// ErrShellUnsupported is returned by Endpoint.Shell on endpoints that
// cannot execute remote commands (the local/UNC driver).
var ErrShellUnsupported = fmt.Errorf("endpoint does not support shell execution")
