package storage

import "errors"

var (
	// ErrReportNotFound is returned when no stored report matches a lookup
	ErrReportNotFound = errors.New("report not found")
	// ErrNilReport is returned when Add is called with a nil report
	ErrNilReport = errors.New("report is nil")
)
