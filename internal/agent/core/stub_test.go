package core

import (
	"context"
	"sync"
)

// stubLLM is the test double for LLMProvider. When respond is set it decides
// the reply per prompt; otherwise response/err are returned verbatim.
type stubLLM struct {
	response string
	err      error
	respond  func(prompt, model string) (string, error)

	mu    sync.Mutex
	calls int
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error) {
	resp, _, _, err := s.GenerateWithTokens(ctx, prompt, model, options)
	return resp, err
}

func (s *stubLLM) GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.respond != nil {
		resp, err := s.respond(prompt, model)
		return resp, 10, 20, err
	}
	return s.response, 10, 20, s.err
}

func (s *stubLLM) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return 0.001
}

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
