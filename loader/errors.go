package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrManifest flags missing or inconsistent flat-load metadata.
	ErrManifest = errors.New("invalid manifest")
	// ErrNotFound is returned by sources for unknown locators.
	ErrNotFound = errors.New("chunk not found")
)

// Stages of loading a chunk, as reported by ChunkError.
const (
	StageFetch   = "fetch"
	StageDecode  = "decode"
	StageScatter = "scatter"
	StageStore   = "store"
)

// ChunkError reports a chunk which could not be loaded.
type ChunkError struct {
	Label    string // destination buffer
	UniqueID string
	Stage    string
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %s of buffer %s: %s: %v", e.UniqueID, e.Label, e.Stage, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
