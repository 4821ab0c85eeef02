// Package command turns free-form text into fully resolved portfolio
// actions. An external parser picks the tool when one is configured;
// without it the service falls back to keyword matching plus the same
// regex resolution pipeline.
package command

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/aristath/folio/internal/apperr"
	"github.com/aristath/folio/internal/catalog"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/observability"
	"github.com/aristath/folio/internal/resolver"
	"github.com/aristath/folio/internal/store"
)

// Parser maps a prompt onto one of the catalog tools. Implemented by the
// gemini client; test doubles stand in for it here.
type Parser interface {
	Parse(ctx context.Context, prompt string, schema *genai.Schema) (catalog.RawCandidate, error)
}

// Service resolves commands against the current portfolio.
type Service struct {
	store   *store.Store
	parser  Parser // nil disables the language model
	metrics *observability.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(st *store.Store, parser Parser, metrics *observability.Metrics, log zerolog.Logger) *Service {
	return &Service{
		store:   st,
		parser:  parser,
		metrics: metrics,
		log:     log.With().Str("service", "command").Logger(),
		now:     time.Now,
	}
}

// Response is what POST /command returns. The action is a proposal; nothing
// has been written yet.
type Response struct {
	Tool       string                `json:"tool"`
	Action     domain.ResolvedAction `json:"resolvedAction"`
	Confidence float64               `json:"confidence"`
}

// Resolve runs the full pipeline: menu filtering, parsing, decoding and
// deterministic resolution against current holdings.
func (s *Service) Resolve(ctx context.Context, text string) (Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, apperr.Validationf("command text is required")
	}

	snapshot := s.store.Snapshot()
	items := catalog.Menu(text, snapshot.Positions, snapshot.Accounts)

	var cand domain.CandidateAction
	if s.parser != nil {
		raw, err := s.parser.Parse(ctx, catalog.Prompt(items, text), catalog.Schema(items))
		if err != nil {
			if s.metrics != nil {
				s.metrics.ParserFailures.Inc()
			}
			return Response{}, err
		}
		cand = catalog.Decode(raw, text)
	} else {
		cand = domain.CandidateAction{Intent: guessIntent(text), Text: text}
	}

	resolved := resolver.Resolve(cand, snapshot.Positions, s.now())
	if s.metrics != nil {
		s.metrics.CommandsResolved.WithLabelValues(string(resolved.Intent)).Inc()
	}
	s.log.Debug().
		Str("intent", string(resolved.Intent)).
		Float64("confidence", resolved.Confidence).
		Strs("missing", resolved.MissingFields).
		Msg("command resolved")

	return Response{
		Tool:       string(resolved.Intent),
		Action:     resolved,
		Confidence: resolved.Confidence,
	}, nil
}

// guessIntent is the parser-less fallback: first keyword rule that matches
// wins, mirroring the catalog's tool ids.
func guessIntent(text string) domain.Intent {
	t := strings.ToLower(text)
	has := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(t, sub) {
				return true
			}
		}
		return false
	}
	switch {
	case has("sell all", "sold all", "sell everything", "sold everything", "dump all", "close out"):
		return domain.IntentSellAll
	case has("sold", "sell", "selling"):
		return domain.IntentSellPartial
	// "remove" contains "move", so it must be ruled out first.
	case has("remove", "delete", "drop "):
		return domain.IntentRemovePosition
	case has("transfer", "moved", "move "):
		return domain.IntentTransferCash
	case has("price is", "is at", "set price", "price to", "trading at"):
		return domain.IntentSetPrice
	case has("bought", "buy", "purchased", "picked up"):
		return domain.IntentBuy
	case has("cash", "deposit", "salary", "savings"):
		return domain.IntentAddCash
	default:
		return domain.IntentUpdatePosition
	}
}
