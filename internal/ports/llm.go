package ports

import "context"

// ReflectionLM is the language-model capability the default instruction
// proposal routine depends on: a synchronous prompt-in, text-out round
// trip. It is only consulted when the adapter does not implement
// TextProposer.
type ReflectionLM interface {
	Prompt(ctx context.Context, prompt string) (string, error)
}
