package model

import "fmt"

// Kind is the error taxonomy from spec.md §7 — a small closed set of
// error *kinds*, not a type hierarchy. Callers branch on Kind via
// errors.As, never on message text.
type Kind string

const (
	KindConfig       Kind = "configuration_error"
	KindFilesystem   Kind = "filesystem_error"
	KindLLMTransport Kind = "llm_transport_error"
	KindLLMContent   Kind = "llm_content_error"
	KindCacheIntegrity Kind = "cache_integrity_error"
	KindDecision     Kind = "decision_error"
	KindHandlerAbsent Kind = "handler_absent"
)

// PipelineError wraps an underlying error with a taxonomy Kind and the
// path it concerns, so the Executor and CLI can decide retry/fatal/skip
// behavior without parsing messages.
type PipelineError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewError builds a PipelineError of the given kind.
func NewError(kind Kind, path string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Path: path, Err: err}
}

// Retryable reports whether errors of this kind are worth retrying under
// the executor's backoff policy (spec.md §7 propagation policy).
func (k Kind) Retryable() bool {
	switch k {
	case KindFilesystem, KindLLMTransport, KindLLMContent:
		return true
	default:
		return false
	}
}

// Fatal reports whether an error of this kind must abort the whole run
// rather than being isolated to one file/directory.
func (k Kind) Fatal() bool {
	return k == KindConfig || k == KindDecision
}
