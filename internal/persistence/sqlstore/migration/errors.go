package migration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	// ErrVersionConflict reports a gap in the sequence or an applied version with no file.
	ErrVersionConflict  = errors.New("migration version conflict")
	ErrDuplicateVersion = errors.New("duplicate migration version")
	// ErrChecksumMismatch reports an applied migration whose file changed after it ran.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

// Error records which step of scanning or applying a migration failed.
type Error struct {
	Version string
	// File is empty for steps that only touch the database.
	File string
	Step string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("migration")
	if e.Version != "" {
		b.WriteString(" " + e.Version)
	}
	if e.File != "" {
		fmt.Fprintf(&b, " (%s)", e.File)
	}
	fmt.Fprintf(&b, ": %s: %v", e.Step, e.Err)
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fileError(version, file, step string, err error) *Error {
	return &Error{Version: version, File: file, Step: step, Err: err}
}

func dbError(version, step string, err error) *Error {
	return &Error{Version: version, Step: step, Err: err}
}
