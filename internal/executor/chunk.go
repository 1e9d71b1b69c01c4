package executor

// EstimatedTokens approximates token count from character count, the
// same rough heuristic local LLM tooling in this pack uses when no
// tokenizer is wired (≈4 characters per token for English prose and
// source code).
func EstimatedTokens(text string) int {
	return len(text) / 4
}

// ChunkTokenThreshold is the "total input tokens exceed a threshold"
// trigger from spec.md §4.7's synthesize_directory task semantics. The
// open question of the exact number is resolved here (SPEC_FULL.md §9a):
// 6000 estimated tokens, comfortably inside the smallest configured
// model's context window while still rare enough that most directories
// synthesize in one shot.
const ChunkTokenThreshold = 6000

// Chunk splits items (child file analyses and subdirectory summaries)
// into groups whose estimated combined token count stays at or under
// ChunkTokenThreshold, preserving input order. A single item larger than
// the threshold still gets its own chunk — it is never split mid-content,
// since doing so would break verbatim-insertion semantics downstream.
func Chunk(items []string) [][]string {
	var chunks [][]string
	var current []string
	currentTokens := 0

	for _, item := range items {
		t := EstimatedTokens(item)
		if len(current) > 0 && currentTokens+t > ChunkTokenThreshold {
			chunks = append(chunks, current)
			current = nil
			currentTokens = 0
		}
		current = append(current, item)
		currentTokens += t
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// NeedsChunking reports whether items' combined estimated token count
// exceeds ChunkTokenThreshold.
func NeedsChunking(items []string) bool {
	total := 0
	for _, item := range items {
		total += EstimatedTokens(item)
	}
	return total > ChunkTokenThreshold
}
