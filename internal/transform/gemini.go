package transform

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/MuXiu1997/ass-processor/internal/logger"
)

const defaultModel = "gemini-2.5-flash"

const defaultPrompt = `You are a subtitle editor. Rewrite the ASS subtitle document below and output ONLY the rewritten document.

Rules:
- Keep every section header, style definition, timestamp and override tag exactly as it is
- Edit only the dialogue text itself: fix typos, normalize punctuation and spacing
- Do not add markdown fences, commentary or extra lines

Subtitle document:
---
%s
---`

type implGemini struct {
	apiKeys    []string
	currentKey int
	model      string
	prompt     string
	logger     logger.Logger
}

func newGemini(opts Options) (Func, error) {
	if len(opts.APIKeys) == 0 {
		return nil, fmt.Errorf("gemini transform requires at least one API key")
	}
	g := &implGemini{
		apiKeys: opts.APIKeys,
		model:   opts.Model,
		prompt:  opts.Prompt,
		logger:  opts.Logger,
	}
	if g.model == "" {
		g.model = defaultModel
	}
	if g.prompt == "" {
		g.prompt = defaultPrompt
	}
	return g.apply, nil
}

// apply sends the subtitle text to Gemini and returns the rewritten text.
// Rotates API keys on 429 / quota errors.
func (g *implGemini) apply(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(g.prompt, text)

	attempts := len(g.apiKeys)
	var lastErr error

	for range attempts {
		key := g.apiKeys[g.currentKey]

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			g.rotateKey()
			continue
		}

		result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			errMsg := err.Error()
			if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "RESOURCE_EXHAUSTED") {
				g.logger.Warn(ctx, "Key %d rate limited, rotating...", g.currentKey+1)
				g.rotateKey()
				lastErr = err
				continue
			}
			return "", fmt.Errorf("generate content: %w", err)
		}

		if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			var out string
			for _, part := range result.Candidates[0].Content.Parts {
				if part.Text != "" {
					out += part.Text
				}
			}
			return out, nil
		}

		return "", fmt.Errorf("empty response from Gemini")
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (g *implGemini) rotateKey() {
	g.currentKey = (g.currentKey + 1) % len(g.apiKeys)
}
