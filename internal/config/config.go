// Package config defines the per-handler-type pipeline configuration
// (spec.md §4.1, C1) and its JSONC-backed Manager (§6.2), generalizing the
// teacher's single global internal/config.Manager (_examples/billie-coop-loco
// /internal/config/config.go) to one config document per handler type.
package config

import (
	"fmt"
)

// FileProcessing bounds how much work a single run will do per file and
// overall (spec.md §4.1 "file-processing").
type FileProcessing struct {
	MaxFileSize             int64 `json:"max_file_size"`
	BatchSize               int   `json:"batch_size"`
	MaxConcurrentOperations int   `json:"max_concurrent_operations"`
}

// ContentFiltering controls which paths a Handler ever presents to the
// rest of the pipeline (spec.md §4.1 "content-filtering").
type ContentFiltering struct {
	ExcludedExtensions    []string `json:"excluded_extensions"`
	ExcludedDirectories   []string `json:"excluded_directories"`
	ExcludedGlobs         []string `json:"excluded_globs,omitempty"`
	ProjectBaseExclusions []string `json:"project_base_exclusions,omitempty"`
}

// LLMConfig selects the model and its sampling parameters (spec.md §4.1
// "LLM").
type LLMConfig struct {
	Provider    string  `json:"provider"`
	ModelID     string  `json:"model_id"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	BaseURL     string  `json:"base_url,omitempty"`
}

// ChangeDetectionMode enumerates the three run modes from spec.md §3/§4.5.
type ChangeDetectionMode string

const (
	ModeFull          ChangeDetectionMode = "full"
	ModeFullKBRebuild ChangeDetectionMode = "full_kb_rebuild"
	ModeIncremental   ChangeDetectionMode = "incremental"
)

// ChangeDetection configures the Rebuild Decision Engine (spec.md §4.1
// "change-detection").
type ChangeDetection struct {
	Mode                      ChangeDetectionMode `json:"mode"`
	TimestampToleranceSeconds int                  `json:"timestamp_tolerance_seconds"`
}

// ErrorHandling configures retry and fault-tolerance behavior (spec.md
// §4.1 "error-handling").
type ErrorHandling struct {
	MaxRetries           int  `json:"max_retries"`
	RetryDelaySeconds    int  `json:"retry_delay_seconds"`
	ContinueOnFileErrors bool `json:"continue_on_file_errors"`
}

// OutputConfig locates the knowledge base on disk (spec.md §4.1 "output").
type OutputConfig struct {
	KnowledgeOutputDirectory string `json:"knowledge_output_directory"`
}

// DebugConfig controls pipeline-stage capture and replay (spec.md §4.1
// "debug", §4.9).
type DebugConfig struct {
	DebugMode            bool   `json:"debug_mode"`
	DebugOutputDirectory string `json:"debug_output_directory"`
	EnableLLMReplay      bool   `json:"enable_llm_replay"`
	DryRun               bool   `json:"dry_run"`
}

// CleanupConfig enumerates cleanup-mode behavior (spec.md §4.1 "cleanup").
type CleanupConfig struct {
	CleanupModeEnabled bool     `json:"cleanup_mode_enabled"`
	CleanupTypes       []string `json:"cleanup_types"`
}

// Valid cleanup type tags, per spec.md §4.1: "cleanup_types ⊆ {kb_files,
// analysis_files}".
const (
	CleanupKBFiles       = "kb_files"
	CleanupAnalysisFiles = "analysis_files"
)

// Config is the full per-handler-type configuration document (spec.md
// §6.2): "{handler_type, description, file_processing{...},
// content_filtering{...}, llm_config{...}, change_detection{...},
// error_handling{...}, output_config{...}, debug_config{...},
// cleanup_config{...}}".
type Config struct {
	HandlerType      string           `json:"handler_type"`
	Description      string           `json:"description"`
	FileProcessing   FileProcessing   `json:"file_processing"`
	ContentFiltering ContentFiltering `json:"content_filtering"`
	LLM              LLMConfig        `json:"llm_config"`
	ChangeDetection  ChangeDetection  `json:"change_detection"`
	ErrorHandling    ErrorHandling    `json:"error_handling"`
	Output           OutputConfig     `json:"output_config"`
	Debug            DebugConfig      `json:"debug_config"`
	Cleanup          CleanupConfig    `json:"cleanup_config"`
}

// Validate fails fast on any out-of-range or unrecognized value, per
// spec.md §4.1: "Validation fails-fast at construction: any out-of-range
// numeric value, any unrecognized mode string, or any project-base
// configuration missing project_base_exclusions is rejected with a
// descriptive error."
func (c *Config) Validate() error {
	if c.HandlerType == "" {
		return fmt.Errorf("config: handler_type must not be empty")
	}
	if c.FileProcessing.MaxFileSize <= 0 {
		return fmt.Errorf("config: file_processing.max_file_size must be positive, got %d", c.FileProcessing.MaxFileSize)
	}
	if c.FileProcessing.BatchSize <= 0 {
		return fmt.Errorf("config: file_processing.batch_size must be positive, got %d", c.FileProcessing.BatchSize)
	}
	if c.FileProcessing.MaxConcurrentOperations <= 0 {
		return fmt.Errorf("config: file_processing.max_concurrent_operations must be positive, got %d", c.FileProcessing.MaxConcurrentOperations)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("config: llm_config.temperature must be in [0,1], got %f", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("config: llm_config.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	switch c.ChangeDetection.Mode {
	case ModeFull, ModeFullKBRebuild, ModeIncremental:
	default:
		return fmt.Errorf("config: change_detection.mode %q is not one of full, full_kb_rebuild, incremental", c.ChangeDetection.Mode)
	}
	if c.ChangeDetection.TimestampToleranceSeconds < 0 {
		return fmt.Errorf("config: change_detection.timestamp_tolerance_seconds must be non-negative, got %d", c.ChangeDetection.TimestampToleranceSeconds)
	}
	if c.ErrorHandling.MaxRetries < 0 {
		return fmt.Errorf("config: error_handling.max_retries must be non-negative, got %d", c.ErrorHandling.MaxRetries)
	}
	if c.ErrorHandling.RetryDelaySeconds < 0 {
		return fmt.Errorf("config: error_handling.retry_delay_seconds must be non-negative, got %d", c.ErrorHandling.RetryDelaySeconds)
	}
	if c.Output.KnowledgeOutputDirectory == "" {
		return fmt.Errorf("config: output_config.knowledge_output_directory must not be empty")
	}
	if c.HandlerType == "project_base" && len(c.ContentFiltering.ProjectBaseExclusions) == 0 {
		return fmt.Errorf("config: project_base handler requires content_filtering.project_base_exclusions")
	}
	for _, t := range c.Cleanup.CleanupTypes {
		if t != CleanupKBFiles && t != CleanupAnalysisFiles {
			return fmt.Errorf("config: cleanup_config.cleanup_types entry %q is not one of kb_files, analysis_files", t)
		}
	}
	return nil
}

// defaultsFor returns the hardcoded defaults for a given handler type,
// autogenerated on first run per spec.md §4.1/§6.2.
func defaultsFor(handlerType string) *Config {
	cfg := &Config{
		HandlerType: handlerType,
		Description: fmt.Sprintf("Indexing configuration for %s sources", handlerType),
		FileProcessing: FileProcessing{
			MaxFileSize:             1 << 20, // 1 MiB
			BatchSize:               20,
			MaxConcurrentOperations: 4,
		},
		ContentFiltering: ContentFiltering{
			ExcludedExtensions:  []string{".exe", ".dll", ".so", ".dylib", ".bin", ".pyc", ".class", ".o", ".a", ".jpg", ".jpeg", ".png", ".gif", ".pdf", ".zip", ".tar", ".gz"},
			ExcludedDirectories: []string{".git", "node_modules", "vendor", "dist", "build", "__pycache__", ".venv"},
			ExcludedGlobs:       []string{"**/*.min.js", "**/*.generated.go", "**/*_pb2.py"},
		},
		LLM: LLMConfig{
			Provider:    "lmstudio",
			ModelID:     "auto",
			Temperature: 0.2,
			MaxTokens:   1024,
			BaseURL:     "http://localhost:1234",
		},
		ChangeDetection: ChangeDetection{
			Mode:                      ModeIncremental,
			TimestampToleranceSeconds: 2,
		},
		ErrorHandling: ErrorHandling{
			MaxRetries:           3,
			RetryDelaySeconds:    2,
			ContinueOnFileErrors: true,
		},
		Output: OutputConfig{
			KnowledgeOutputDirectory: "{project_root}/.knowledge",
		},
		Debug: DebugConfig{
			DebugMode:            false,
			DebugOutputDirectory: "{project_root}/.knowledge/debug",
			EnableLLMReplay:      false,
			DryRun:               false,
		},
		Cleanup: CleanupConfig{
			CleanupModeEnabled: false,
			CleanupTypes:       nil,
		},
	}
	if handlerType == "project_base" {
		cfg.ContentFiltering.ProjectBaseExclusions = []string{".knowledge", ".coding_assistant", ".clinerules"}
	}
	return cfg
}
