// Package llm defines the provider-agnostic chat client surface synth uses
// to reach a language model. Concrete providers (OpenAIClient here; others
// pluggable) implement Client; synth never imports a provider SDK directly.
package llm

import "context"

// Message is one turn in a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the provider-agnostic chat surface synth depends on.
type Client interface {
	Chat(ctx context.Context, messages []Message, options *SamplingOptions) (*Response, error)
}

// SamplingOptions tunes a single Chat call. A nil *SamplingOptions leaves
// provider defaults in effect.
type SamplingOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	Seed        int64   `json:"seed"`
}

// Response is a model's reply to a Chat call.
type Response struct {
	Content string `json:"content"`
}
