package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbindex/indexer/internal/llmdebug"
	"github.com/kbindex/indexer/internal/model"
)

// Adapter is C9 from spec.md §4.8: "Uniform call surface: call(stage,
// target, prompt) → text", routing through the Debug Handler for
// capture/replay. It wraps the teacher's llm.Client interface
// (_examples/billie-coop-loco/internal/llm/client.go), which already
// supplies the request/response mechanics this adapter only needs to
// front uniformly.
type Adapter struct {
	Client      Client
	Debug       *llmdebug.Handler
	ReplayOn    bool
	CaptureOn   bool
	Temperature float64
	MaxTokens   int
}

// NewAdapter builds an Adapter over client, with replay/capture driven by
// the debug_config flags (spec.md §4.1).
func NewAdapter(client Client, debug *llmdebug.Handler, replayOn, captureOn bool, temperature float64, maxTokens int) *Adapter {
	return &Adapter{Client: client, Debug: debug, ReplayOn: replayOn, CaptureOn: captureOn, Temperature: temperature, MaxTokens: maxTokens}
}

// Call implements spec.md §4.8's four steps for a non-chunked invocation.
func (a *Adapter) Call(ctx context.Context, stage model.Stage, target, prompt string) (string, error) {
	return a.call(ctx, stage, target, "", prompt)
}

// CallChunk is Call for a chunked stage variant (spec.md §4.9: "Chunk
// variants append _chunk_{info}").
func (a *Adapter) CallChunk(ctx context.Context, stage model.Stage, target, chunkInfo, prompt string) (string, error) {
	return a.call(ctx, stage, target, chunkInfo, prompt)
}

func (a *Adapter) call(ctx context.Context, stage model.Stage, target, chunkInfo, prompt string) (string, error) {
	if a.ReplayOn && a.Debug != nil {
		if resp, ok, err := a.Debug.ReplayResponse(stage, target, chunkInfo); err != nil {
			return "", fmt.Errorf("llm adapter: replay lookup: %w", err)
		} else if ok {
			return resp, nil
		}
	}

	resp, err := a.Client.Complete(ctx, []Message{{Role: "user", Content: prompt}}, CompleteOptions{Temperature: a.Temperature, MaxTokens: a.MaxTokens})
	if err != nil {
		return "", model.NewError(model.KindLLMTransport, target, fmt.Errorf("llm call failed for stage %s: %w", stage, err))
	}
	if strings.TrimSpace(resp) == "" {
		// spec.md §7: "LLM content error: LLM returned empty or malformed
		// text; treated as a transport error for retry purposes."
		return "", model.NewError(model.KindLLMContent, target, fmt.Errorf("empty response for stage %s", stage))
	}

	if a.CaptureOn && a.Debug != nil {
		if err := a.Debug.Capture(stage, target, chunkInfo, prompt, resp); err != nil {
			return "", fmt.Errorf("llm adapter: capture: %w", err)
		}
	}

	return resp, nil
}
