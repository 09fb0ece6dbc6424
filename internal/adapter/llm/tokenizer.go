// Package llm provides provider-independent helpers for the LLM adapters.
package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	defaultEncoder *tiktoken.Tiktoken
	encoderOnce    sync.Once
	encoderErr     error
)

func getEncoder() (*tiktoken.Tiktoken, error) {
	encoderOnce.Do(func() {
		defaultEncoder, encoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	return defaultEncoder, encoderErr
}

// EstimateTokens returns an estimated token count for the given text using
// the cl100k_base encoding. Gemini uses its own tokenizer, but cl100k_base
// is a close enough approximation for prompt size budgeting.
func EstimateTokens(text string) int {
	enc, err := getEncoder()
	if err != nil {
		// Character-based estimate when the encoding data is unavailable.
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
