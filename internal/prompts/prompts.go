// Package prompts holds the prompt text invoked at each pipeline stage.
// The core pipeline only fixes where a stage is invoked and how its
// output is stored (spec.md §1, §4.8); the prompt wording itself is not
// part of the core's contract and lives here so it can be revised
// independently. Prompt construction follows the teacher's
// strings.Builder idiom (internal/project/knowledge_generator.go).
package prompts

import (
	"fmt"
	"strings"
)

// FileAnalysis builds the stage-1 prompt for a single file, in the
// teacher's fixed-format-response style (internal/project/file_analyzer.go
// analyzeFile): a short structured analysis the caller can parse.
func FileAnalysis(relPath, fileType, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are analyzing a single source file for a project knowledge base.\n\n")
	fmt.Fprintf(&b, "File: %s\nType: %s\n\n", relPath, fileType)
	fmt.Fprintf(&b, "Content:\n```\n%s\n```\n\n", content)
	b.WriteString("Write a concise analysis (3-6 sentences) covering: purpose, key exports or entry points, and notable dependencies. Plain prose, no headings.\n")
	return b.String()
}

// EmptyFileAnalysis is the standardized analysis for a zero-byte file
// (spec.md §4.7 analyze_file, boundary behavior in §8) — synthesized
// without any LLM call.
func EmptyFileAnalysis(relPath string, size int64, fileType string) string {
	return fmt.Sprintf("Empty file (%d bytes, type: %s). No content to analyze.", size, fileType)
}

// ChunkAnalysis builds the stage-2 prompt summarizing one chunk of child
// file analyses and subdirectory summaries.
func ChunkAnalysis(dirPath string, chunkIndex, chunkCount int, items []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Directory: %s (chunk %d/%d)\n\n", dirPath, chunkIndex+1, chunkCount)
	b.WriteString("Summarize the following file and subdirectory analyses into one concise paragraph, preserving the most important facts:\n\n")
	for _, it := range items {
		b.WriteString(it)
		b.WriteString("\n---\n")
	}
	return b.String()
}

// ChunkAggregate builds the stage-3 prompt combining chunk summaries.
func ChunkAggregate(dirPath string, chunkSummaries []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Directory: %s\n\n", dirPath)
	b.WriteString("Combine the following chunk summaries into a single coherent summary of the whole directory:\n\n")
	for i, s := range chunkSummaries {
		fmt.Fprintf(&b, "Chunk %d:\n%s\n\n", i+1, s)
	}
	return b.String()
}

// DirectoryAnalysis builds the stage-4 prompt producing the directory's
// synthesis from its (possibly aggregated) inputs.
func DirectoryAnalysis(dirPath, aggregated string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Directory: %s\n\n", dirPath)
	b.WriteString("Based on the following material, write a clear summary of this directory's purpose and structure (one or two short paragraphs):\n\n")
	b.WriteString(aggregated)
	return b.String()
}

// GlobalSummary builds the stage-5 prompt producing the project-root
// summary from the root directory's synthesis.
func GlobalSummary(projectPath, rootDirectorySummary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n\n", projectPath)
	b.WriteString("Write a top-level project summary (purpose, architecture, key technologies) based on this root directory analysis:\n\n")
	b.WriteString(rootDirectorySummary)
	return b.String()
}
