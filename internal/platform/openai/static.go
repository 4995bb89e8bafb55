package openai

import "context"

// StaticClient returns a fixed response for every call. It stands in for
// the real provider when no API key is configured, and in tests.
type StaticClient struct {
	Response string
}

func NewStaticClient(response string) *StaticClient {
	return &StaticClient{Response: response}
}

func (s *StaticClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Response, nil
}
