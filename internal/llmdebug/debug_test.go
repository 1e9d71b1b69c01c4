package llmdebug

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbindex/indexer/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/proj/src/main.go", "_proj_src_main_go"},
		{`proj\src\main.go`, "proj_src_main_go"},
		{"a---b  c", "a_b_c"},
		{"Already_Lower.GO", "already_lower_go"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCaptureThenReplay_RoundTrips(t *testing.T) {
	h := New(t.TempDir(), "")
	target := "/proj/src/main.go"

	if err := h.Capture(model.StageFileAnalysis, target, "", "the prompt", "the response"); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	resp, ok, err := h.ReplayResponse(model.StageFileAnalysis, target, "")
	if err != nil {
		t.Fatalf("ReplayResponse: %v", err)
	}
	if !ok {
		t.Fatal("ReplayResponse reported a miss right after Capture")
	}
	if resp != "the response" {
		t.Errorf("response = %q, want %q", resp, "the response")
	}
}

func TestReplayResponse_MissReturnsOkFalse(t *testing.T) {
	h := New(t.TempDir(), "")
	_, ok, err := h.ReplayResponse(model.StageFileAnalysis, "/proj/never/captured.go", "")
	if err != nil {
		t.Fatalf("ReplayResponse: %v", err)
	}
	if ok {
		t.Error("ReplayResponse reported a hit for a target that was never captured")
	}
}

func TestCapture_ChunkVariantsDoNotCollideWithWholeFile(t *testing.T) {
	h := New(t.TempDir(), "")
	target := "/proj/big.json"

	if err := h.Capture(model.StageChunkAnalysis, target, "", "whole prompt", "whole response"); err != nil {
		t.Fatal(err)
	}
	if err := h.Capture(model.StageChunkAnalysis, target, "0", "chunk0 prompt", "chunk0 response"); err != nil {
		t.Fatal(err)
	}

	whole, ok, err := h.ReplayResponse(model.StageChunkAnalysis, target, "")
	if err != nil || !ok {
		t.Fatalf("whole-file replay: ok=%v err=%v", ok, err)
	}
	chunk, ok, err := h.ReplayResponse(model.StageChunkAnalysis, target, "0")
	if err != nil || !ok {
		t.Fatalf("chunk replay: ok=%v err=%v", ok, err)
	}
	if whole == chunk {
		t.Error("whole-file and chunk-0 responses collided onto the same file")
	}
}

func TestCapture_UsesFixedStageDirectories(t *testing.T) {
	root := t.TempDir()
	h := New(root, "")
	if err := h.Capture(model.StageDirectoryAnalysis, "/proj/src", "", "p", "r"); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(root, "llm_debug", "stage_4_directory_analysis")
	entries, err := os.ReadDir(want)
	if err != nil {
		t.Fatalf("expected stage directory %s to exist: %v", want, err)
	}
	if len(entries) != 2 { // prompt + response
		t.Errorf("stage directory has %d entries, want 2 (prompt+response)", len(entries))
	}
}

func TestWritePipelineStagesDoc_ListsAllFiveStages(t *testing.T) {
	root := t.TempDir()
	h := New(root, "")
	if err := h.WritePipelineStagesDoc(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(root, "llm_debug", "PIPELINE_STAGES.md"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"stage_1_file_analysis",
		"stage_2_chunk_analysis",
		"stage_3_chunk_aggregation",
		"stage_4_directory_analysis",
		"stage_5_global_summary",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("PIPELINE_STAGES.md missing %q", want)
		}
	}
}
