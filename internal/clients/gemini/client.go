// Package gemini calls the Gemini API to map free-form portfolio commands
// onto the action catalog. Responses are constrained by a JSON schema so the
// model can only answer with a tool id and string arguments.
package gemini

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/aristath/folio/internal/apperr"
	"github.com/aristath/folio/internal/catalog"
)

const defaultModel = "gemini-2.5-flash"

// Client talks to a single Gemini model.
type Client struct {
	genai   *genai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// New builds a client. An empty model falls back to the default.
func New(ctx context.Context, apiKey, model string, log zerolog.Logger) (*Client, error) {
	if model == "" {
		model = defaultModel
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperr.Upstreamf(err, "creating gemini client")
	}
	return &Client{
		genai:   gc,
		model:   model,
		timeout: 30 * time.Second,
		log:     log.With().Str("component", "gemini").Logger(),
	}, nil
}

// Parse sends the prompt to the model and decodes its schema-constrained
// answer. Every failure is an upstream error; the caller decides whether to
// fall back to regex-only resolution.
func (c *Client) Parse(ctx context.Context, prompt string, schema *genai.Schema) (catalog.RawCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return catalog.RawCandidate{}, apperr.Upstreamf(err, "gemini request failed")
	}
	text := responseText(resp)
	if text == "" {
		return catalog.RawCandidate{}, apperr.Upstreamf(nil, "gemini returned an empty response")
	}

	var raw catalog.RawCandidate
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		c.log.Warn().Str("response", text).Err(err).Msg("unparseable model response")
		return catalog.RawCandidate{}, apperr.Upstreamf(err, "decoding gemini response")
	}
	return raw, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}
