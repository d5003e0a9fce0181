// Package dspyadapter bridges this module's own interfaces onto
// github.com/XiaoConstantine/dspy-go's pkg/core types, so a caller who
// already has a dspy-go pipeline can drop the engine's ReflectionLM and
// textadapter.Example dataset into it without writing glue code twice.
package dspyadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/XiaoConstantine/dspy-go/pkg/core"

	"github.com/gepa-run/gepa-engine/internal/gepa/textadapter"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

// LLM adapts a ports.ReflectionLM to dspy-go's core.LLM interface. Only
// Generate is implemented: the default instruction-proposal routine (and
// textadapter.Adapter) only ever need a synchronous prompt-in, text-out
// round trip, never JSON/function/embedding/streaming/multimodal
// generation.
type LLM struct {
	lm    ports.ReflectionLM
	model string
}

// New wraps lm as a dspy-go core.LLM reporting the given model id.
func New(lm ports.ReflectionLM, model string) *LLM {
	return &LLM{lm: lm, model: model}
}

// Generate implements core.LLM.
func (a *LLM) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	content, err := a.lm.Prompt(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("reflection lm prompt failed: %w", err)
	}
	return &core.LLMResponse{Content: content}, nil
}

// GenerateWithJSON implements structured JSON output.
// NOT NEEDED for GEPA: reflective mutation only ever parses a fenced
// component rewrite out of free text. This would be needed for:
// - Structured-output modules requiring JSON schema validation
// - Chain-of-thought with a guaranteed JSON response format
func (a *LLM) GenerateWithJSON(ctx context.Context, prompt string, opts ...core.GenerateOption) (map[string]interface{}, error) {
	return nil, fmt.Errorf("GenerateWithJSON not implemented: not required for GEPA optimization")
}

// GenerateWithFunctions implements function calling.
// NOT NEEDED for GEPA: the reflection LM only ever rewrites text components.
// This would be needed for:
// - ReAct modules that use tool calling
// - Function-based agents driven by dspy-go
func (a *LLM) GenerateWithFunctions(ctx context.Context, prompt string, functions []map[string]interface{}, opts ...core.GenerateOption) (map[string]interface{}, error) {
	return nil, fmt.Errorf("GenerateWithFunctions not implemented: not required for GEPA optimization")
}

// CreateEmbedding creates an embedding for the input.
// NOT NEEDED for GEPA: scoring is exact-match or adapter-defined, never
// embedding-based similarity. This would be needed for:
// - Semantic similarity metrics
// - Vector-based candidate retrieval
func (a *LLM) CreateEmbedding(ctx context.Context, input string, opts ...core.EmbeddingOption) (*core.EmbeddingResult, error) {
	return nil, fmt.Errorf("CreateEmbedding not implemented: not required for GEPA optimization")
}

// CreateEmbeddings creates embeddings for multiple inputs, for the same
// reason CreateEmbedding is unimplemented.
func (a *LLM) CreateEmbeddings(ctx context.Context, inputs []string, opts ...core.EmbeddingOption) (*core.BatchEmbeddingResult, error) {
	return nil, fmt.Errorf("CreateEmbeddings not implemented: not required for GEPA optimization")
}

// StreamGenerate implements streaming generation.
// NOT NEEDED for GEPA: the engine's reflection and rollout calls are
// synchronous request/response, never streamed to a live client.
func (a *LLM) StreamGenerate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.StreamResponse, error) {
	return nil, fmt.Errorf("StreamGenerate not implemented: not required for GEPA optimization")
}

// GenerateWithContent implements multimodal generation.
// NOT NEEDED for GEPA: components and trajectories are plain text.
// This would be needed for:
// - Vision-based Chain-of-Thought modules
// - Multimodal evaluation of image or audio outputs
func (a *LLM) GenerateWithContent(ctx context.Context, content []core.ContentBlock, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	return nil, fmt.Errorf("GenerateWithContent not implemented: not required for GEPA optimization")
}

// StreamGenerateWithContent implements streaming multimodal generation,
// for the combined reasons StreamGenerate and GenerateWithContent are
// unimplemented.
func (a *LLM) StreamGenerateWithContent(ctx context.Context, content []core.ContentBlock, opts ...core.GenerateOption) (*core.StreamResponse, error) {
	return nil, fmt.Errorf("StreamGenerateWithContent not implemented: not required for GEPA optimization")
}

// ProviderName implements core.LLM.
func (a *LLM) ProviderName() string {
	return "gepa"
}

// ModelID implements core.LLM.
func (a *LLM) ModelID() string {
	return a.model
}

// Capabilities implements core.LLM.
func (a *LLM) Capabilities() []core.Capability {
	return []core.Capability{core.CapabilityChat, core.CapabilityCompletion}
}

// Dataset adapts a []textadapter.Example to dspy-go's core.Dataset
// interface, so a caller with a dspy-go pipeline can reuse the same
// labeled set the engine optimizes against.
type Dataset struct {
	examples []textadapter.Example
	index    int
}

// NewDataset wraps examples for sequential dspy-go iteration.
func NewDataset(examples []textadapter.Example) *Dataset {
	return &Dataset{examples: examples}
}

// Next implements core.Dataset.
func (d *Dataset) Next() (core.Example, bool) {
	if d.index >= len(d.examples) {
		return core.Example{}, false
	}
	ex := d.examples[d.index]
	d.index++
	return core.Example{
		Inputs:  stringMapToAny(ex.Inputs),
		Outputs: map[string]interface{}{"expected": ex.Expected},
	}, true
}

// Reset implements core.Dataset.
func (d *Dataset) Reset() {
	d.index = 0
}

func stringMapToAny(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ExactMatchMetric adapts textadapter's trimmed, case-insensitive exact
// match scoring to dspy-go's core.Metric function type. It compares the
// "expected" key of both maps, or their "answer" keys when the expected map
// has no "expected" string; an empty expected value scores 0.
func ExactMatchMetric(expected, actual map[string]interface{}) float64 {
	want, _ := expected["expected"].(string)
	got, _ := actual["expected"].(string)
	if want == "" {
		got, _ = actual["answer"].(string)
		want, _ = expected["answer"].(string)
	}
	if want != "" && strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got)) {
		return 1.0
	}
	return 0.0
}
