// Package scrape defines core types shared across subsystems.
package scrape

import (
	"time"
)

// FetchMode selects the transport used for a resource.
type FetchMode string

// Fetch modes recognized in resource configuration.
const (
	FetchModeStatic  FetchMode = "static"
	FetchModeDynamic FetchMode = "dynamic"
)

// ResourceConfig holds the pacing and concurrency knobs for one resource.
type ResourceConfig struct {
	MinDelay       time.Duration
	MaxConcurrency int
	Mode           FetchMode
}

// FallbackResourceConfig is the conservative default applied to resources
// that have neither an exact nor a wildcard configuration entry.
func FallbackResourceConfig() ResourceConfig {
	return ResourceConfig{
		MinDelay:       3 * time.Second,
		MaxConcurrency: 1,
		Mode:           FetchModeStatic,
	}
}

// Normalize clamps a ResourceConfig to its invariants.
func (c ResourceConfig) Normalize() ResourceConfig {
	if c.MinDelay < 0 {
		c.MinDelay = 0
	}
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 1
	}
	if c.Mode != FetchModeDynamic {
		c.Mode = FetchModeStatic
	}
	return c
}

// FetchOutcome is the terminal result of one fetch attempt sequence.
type FetchOutcome struct {
	URL         string
	StatusCode  int
	Body        []byte
	ContentType string
	Duration    time.Duration
}

// TaskResult is the per-URL terminal result produced by a batch run.
// Results are immutable once produced and ordered by input position.
type TaskResult struct {
	URL         string
	Success     bool
	Text        string
	Metadata    map[string]string
	ContentType string
	Err         error
}

// ErrText renders the task error for summaries, empty on success.
func (r TaskResult) ErrText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// StructuredDocument is the normalized record produced by the structuring
// service for a scraped document.
type StructuredDocument struct {
	ID               string     `json:"id,omitempty"`
	Title            string     `json:"title"`
	PublicationDate  *time.Time `json:"publication_date,omitempty"`
	IssuingAuthority string     `json:"issuing_authority,omitempty"`
	DocumentType     string     `json:"document_type"`
	Summary          string     `json:"summary,omitempty"`
	FullText         string     `json:"full_text"`
	SourceURL        string     `json:"source_url"`
}
