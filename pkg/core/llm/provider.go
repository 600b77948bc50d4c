// Package llm abstracts the LLM collaborator used for label mapping.
package llm

import "context"

// Provider is the interface for all LLM providers.
type Provider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
