package core

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid or missing setting detected at
// assembly time. It is fatal: callers must abort startup rather than
// construct agents from a partially valid configuration.
type ConfigurationError struct {
	Setting   string   // name of the offending setting (e.g. "provider", "store_key")
	Value     string   // offending value, if any
	Supported []string // accepted values, if the setting is enumerated
	Reason    string   // human readable explanation
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error: %s", e.Setting)
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if len(e.Supported) > 0 {
		msg += fmt.Sprintf(" (supported: %s)", strings.Join(e.Supported, ", "))
	}
	return msg
}

// StorageUnavailableError indicates the shared backing file could not be
// opened or written. Construction of any agent depending on the store must
// not proceed.
type StorageUnavailableError struct {
	Path string
	Err  error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable at %s: %v", e.Path, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

// Ingestion stages recorded on IngestionError.
const (
	StageFetch = "fetch"
	StageChunk = "chunk"
	StageEmbed = "embed"
	StageIndex = "index"
)

// IngestionError reports a failure while ingesting a knowledge source. It is
// recoverable: the affected source transitions to the failed state and the
// owning agent is still constructed without retrieval augmentation.
type IngestionError struct {
	Source string // source identifier
	Stage  string // fetch | chunk | embed | index
	Err    error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion of %q failed during %s: %v", e.Source, e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
