// Package llmdebug implements C10 from spec.md §4.9: pipeline-stage
// organized capture and deterministic replay of LLM calls. Predictable
// filenames are the load-bearing property here; this generalizes the
// teacher's debug-artifact idiom in cmd/capture-responses
// (_examples/billie-coop-loco/cmd/capture-responses), which names files
// by capture timestamp, into the spec's fixed stage-directory layout with
// content-derived (not time-derived) names — replay requires identical
// inputs to always resolve to the same file.
package llmdebug

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kbindex/indexer/internal/model"
)

// stageDir maps a pipeline Stage to its fixed debug subdirectory name
// (spec.md §4.9: "The five stage directories are fixed").
var stageDir = map[model.Stage]string{
	model.StageFileAnalysis:      "stage_1_file_analysis",
	model.StageChunkAnalysis:     "stage_2_chunk_analysis",
	model.StageChunkAggregate:    "stage_3_chunk_aggregation",
	model.StageDirectoryAnalysis: "stage_4_directory_analysis",
	model.StageGlobalSummary:     "stage_5_global_summary",
}

// Handler reads and writes LLM debug artifacts under one
// debug_output_directory.
type Handler struct {
	root       string // {debug_output_directory}/llm_debug
	sourceRoot string // targets are normalized relative to this, when set
}

// New builds a Handler rooted at debugOutputDirectory. sourceRoot, if
// non-empty, has everything above its own directory name stripped from
// capture/replay targets before normalizing, so /p/src/main.py under root
// /p becomes p/src/main.py and normalizes to p_src_main_py; replay
// filenames therefore stay identical wherever the project directory is
// checked out.
func New(debugOutputDirectory, sourceRoot string) *Handler {
	return &Handler{root: filepath.Join(debugOutputDirectory, "llm_debug"), sourceRoot: sourceRoot}
}

// relTarget returns target relative to the parent of sourceRoot (so the
// root directory's own name is kept) when target lies inside sourceRoot;
// otherwise it falls back to target unchanged (e.g. chunk markers and
// other non-path targets already aren't filesystem paths).
func (h *Handler) relTarget(target string) string {
	if h.sourceRoot == "" {
		return target
	}
	rel, err := filepath.Rel(h.sourceRoot, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return target
	}
	return filepath.Join(filepath.Base(h.sourceRoot), rel)
}

var normalizeRunRe = regexp.MustCompile(`_+`)
var normalizeCharsRe = regexp.MustCompile(`[/\\. \-]`)

// normalize implements spec.md §4.9's exact rule: "normalized_target_path
// is the target path lowercased with /, \, ., -, spaces all replaced by _
// and consecutive underscores collapsed."
func normalize(targetPath string) string {
	s := strings.ToLower(targetPath)
	s = normalizeCharsRe.ReplaceAllString(s, "_")
	s = normalizeRunRe.ReplaceAllString(s, "_")
	return s
}

// fileBase returns the normalized filename stem for (stage, target),
// optionally with a chunk suffix (spec.md §4.9: "Chunk variants append
// _chunk_{info}").
func (h *Handler) fileBase(target, chunkInfo string) string {
	base := normalize(h.relTarget(target))
	if chunkInfo != "" {
		base += "_chunk_" + normalize(chunkInfo)
	}
	return base
}

func (h *Handler) dir(stage model.Stage) (string, error) {
	sd, ok := stageDir[stage]
	if !ok {
		return "", fmt.Errorf("llmdebug: unknown stage %q", stage)
	}
	return filepath.Join(h.root, sd), nil
}

// ReplayResponse returns a previously captured response for (stage,
// target, chunkInfo), if one exists (spec.md §4.9 "Replay strategy"). A
// human may have hand-edited the file; this always re-reads from disk.
func (h *Handler) ReplayResponse(stage model.Stage, target, chunkInfo string) (string, bool, error) {
	dir, err := h.dir(stage)
	if err != nil {
		return "", false, err
	}
	p := filepath.Join(dir, h.fileBase(target, chunkInfo)+"_response.txt")
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("llmdebug: read %s: %w", p, err)
	}
	return string(data), true, nil
}

// Capture writes both the prompt and the response for (stage, target,
// chunkInfo) under the fixed stage-directory layout (spec.md §4.9, §6.3).
func (h *Handler) Capture(stage model.Stage, target, chunkInfo, prompt, response string) error {
	dir, err := h.dir(stage)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("llmdebug: create %s: %w", dir, err)
	}
	base := h.fileBase(target, chunkInfo)
	if err := os.WriteFile(filepath.Join(dir, base+"_prompt.txt"), []byte(prompt), 0o644); err != nil {
		return fmt.Errorf("llmdebug: write prompt: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, base+"_response.txt"), []byte(response), 0o644); err != nil {
		return fmt.Errorf("llmdebug: write response: %w", err)
	}
	return nil
}

// WritePipelineStagesDoc writes the human-readable PIPELINE_STAGES.md
// describing the debug layout (spec.md §6.3).
func (h *Handler) WritePipelineStagesDoc() error {
	if err := os.MkdirAll(h.root, 0o755); err != nil {
		return fmt.Errorf("llmdebug: create %s: %w", h.root, err)
	}
	var b strings.Builder
	b.WriteString("# Pipeline Stages\n\n")
	b.WriteString("Each stage below is a fixed subdirectory under `llm_debug/`, holding\n")
	b.WriteString("`{normalized_target_path}[_chunk_{info}]_prompt.txt` / `_response.txt`\n")
	b.WriteString("pairs with predictable, content-derived names.\n\n")
	stages := []model.Stage{
		model.StageFileAnalysis, model.StageChunkAnalysis, model.StageChunkAggregate,
		model.StageDirectoryAnalysis, model.StageGlobalSummary,
	}
	for _, s := range stages {
		fmt.Fprintf(&b, "- `%s/` — %s\n", stageDir[s], s)
	}
	return os.WriteFile(filepath.Join(h.root, "PIPELINE_STAGES.md"), []byte(b.String()), 0o644)
}
