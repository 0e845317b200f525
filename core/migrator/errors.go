package migrator

import (
	"errors"
	"fmt"
)

var (
	ErrDirectoryNotFound = errors.New("migration directory not found")
	ErrInvalidFilename   = errors.New("invalid migration filename")
	ErrLoad              = errors.New("cannot load migration")
	ErrMigrationFailed   = errors.New("migration failed")
	ErrPersistence       = errors.New("cannot persist migration state")
	ErrInvalidVersion    = errors.New("invalid version")
)

// CatalogError is returned when the migration catalog cannot be listed.
type CatalogError struct {
	Dir string
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("migration catalog %q: %v", e.Dir, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// FilenameError is returned for a migration candidate whose name does not
// follow v<version>-<timestamp>-<title>.go
type FilenameError struct {
	Filename string
	Reason   string
}

func (e *FilenameError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidFilename, e.Filename, e.Reason)
}

func (e *FilenameError) Unwrap() error {
	return ErrInvalidFilename
}

type LoadError struct {
	Filename string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrLoad, e.Filename, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

// MigrationError records why a single migration of a batch failed.
type MigrationError struct {
	Filename string
	Err      error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrMigrationFailed, e.Filename, e.Err)
}

func (e *MigrationError) Unwrap() []error {
	return []error{ErrMigrationFailed, e.Err}
}

// PersistenceError is returned when the log entry or the new version could
// not be written after a batch ran.
type PersistenceError struct {
	Scope string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s (%s %s): %v", ErrPersistence, e.Op, e.Scope, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
