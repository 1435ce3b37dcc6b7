package backend

import (
	"context"

	"spendtrack/internal/sheets"
)

// CleanupFunc releases resources held by a mirror.
type CleanupFunc func() error

// Result contains the mirror instance and optional cleanup function
type Result struct {
	Mirror  sheets.Mirror
	Cleanup CleanupFunc
}

// Factory creates mirrors based on configuration
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for mirror creation
type Config struct {
	Type MirrorType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
}

// MirrorType selects where expense events are mirrored.
type MirrorType string

const (
	MemoryMirror MirrorType = "memory"
	SheetsMirror MirrorType = "sheets"
)

func (mt MirrorType) String() string {
	return string(mt)
}

func (mt MirrorType) IsValid() bool {
	switch mt {
	case MemoryMirror, SheetsMirror:
		return true
	default:
		return false
	}
}
