package cmd

import "fmt"

// MissingFlagError indicates a required flag was not supplied.
type MissingFlagError struct {
	Flag string
}

func (e *MissingFlagError) Error() string {
	return fmt.Sprintf("--%s is required", e.Flag)
}

// UnsupportedFormatError signals an unknown --format value.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Format == "" {
		return "output format cannot be empty (use json or text)"
	}
	return fmt.Sprintf("unsupported output format %q (use json or text)", e.Format)
}

// EmptyBatchError is returned when a batch input contains no targets.
type EmptyBatchError struct {
	Source string
}

func (e *EmptyBatchError) Error() string {
	if e.Source == "" {
		return "no targets to interrogate"
	}
	return fmt.Sprintf("no targets to interrogate in %s", e.Source)
}
