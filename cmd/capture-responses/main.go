// Command capture-responses builds deterministic LLM replay fixtures for a
// source tree: it runs the file-analysis prompt against every in-scope
// file through a live LM Studio model and writes each response through
// the debug layout (internal/llmdebug), so a later run with
// debug_config.enable_llm_replay can reproduce the pipeline without a
// model loaded.
//
// Adapted from the teacher's model-response sweep
// (_examples/billie-coop-loco/cmd/capture-responses/main.go), which
// looped over LM Studio models and a fixed prompt roster and wrote
// ad-hoc JSON; this generalizes that loop to the indexer's own prompt
// (internal/prompts.FileAnalysis) and persists through the same capture
// path a real run uses, rather than a bespoke format.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/kbindex/indexer/internal/config"
	"github.com/kbindex/indexer/internal/discovery"
	"github.com/kbindex/indexer/internal/handler"
	"github.com/kbindex/indexer/internal/llm"
	"github.com/kbindex/indexer/internal/llmdebug"
	"github.com/kbindex/indexer/internal/model"
	"github.com/kbindex/indexer/internal/prompts"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: capture-responses <source-root> <debug-output-dir>")
		os.Exit(1)
	}

	sourceRoot, err := filepath.Abs(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	debugDir := os.Args[2]

	client := llm.NewLMStudioClient()
	if err := client.HealthCheck(); err != nil {
		log.Fatal("LM Studio is not running: ", err)
	}

	h := handler.NewProjectBase(sourceRoot, config.ContentFiltering{
		ExcludedDirectories: []string{".git", ".knowledge"},
	})

	tree, err := discovery.Walk(h, sourceRoot, sourceRoot, 1<<20)
	if err != nil {
		log.Fatal(err)
	}

	debug := llmdebug.New(debugDir, sourceRoot)
	if err := debug.WritePipelineStagesDoc(); err != nil {
		log.Fatal(err)
	}

	count := captureDir(client, debug, tree)
	fmt.Printf("captured %d file-analysis response(s) to %s\n", count, debugDir)
}

func captureDir(client llm.Client, debug *llmdebug.Handler, d *model.DirectoryContext) int {
	count := 0
	for _, f := range d.Files {
		if f.FileSize == 0 {
			continue
		}
		data, err := os.ReadFile(f.FilePath)
		if err != nil {
			fmt.Printf("skip %s: %v\n", f.FilePath, err)
			continue
		}

		prompt := prompts.FileAnalysis(f.FilePath, filepath.Ext(f.FilePath), string(data))

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		resp, err := client.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.DefaultCompleteOptions())
		cancel()
		if err != nil {
			fmt.Printf("ERROR %s: %v\n", f.FilePath, err)
			continue
		}

		if err := debug.Capture(model.StageFileAnalysis, f.FilePath, "", prompt, resp); err != nil {
			fmt.Printf("ERROR saving %s: %v\n", f.FilePath, err)
			continue
		}
		fmt.Printf("captured %s\n", f.FilePath)
		count++
	}
	for _, sub := range d.Subdirs {
		count += captureDir(client, debug, sub)
	}
	return count
}
