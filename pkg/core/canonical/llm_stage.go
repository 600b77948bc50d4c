package canonical

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/phuslu/log"

	"fincanon/pkg/core/llm"
	"fincanon/pkg/core/utils"
)

const llmMaxAttempts = 3

// LLMStage maps labels the rule stage could not resolve. All pending labels
// for a statement go out in a single request.
type LLMStage struct {
	provider llm.Provider

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

// NewLLMStage creates the fallback mapping stage backed by provider.
func NewLLMStage(provider llm.Provider) *LLMStage {
	return &LLMStage{provider: provider, sleep: time.Sleep}
}

func (s *LLMStage) Name() string { return "llm" }

const mappingSystemPrompt = `You map raw financial statement line-item labels to a fixed canonical taxonomy.
Respond with ONLY a JSON array, one element per input label:
[{"label": "<input label verbatim>", "item": "<canonical item or none>", "confidence": <0.0-1.0>}]
Use "none" when no taxonomy item fits. Never invent taxonomy items.`

type mappingEntry struct {
	Label      string  `json:"label"`
	Item       string  `json:"item"`
	Confidence float64 `json:"confidence"`
}

func (s *LLMStage) Map(ctx context.Context, req MapRequest) (map[string]Candidate, error) {
	if len(req.Labels) == 0 {
		return map[string]Candidate{}, nil
	}

	prompt := s.buildPrompt(req)

	var lastErr error
	for attempt := 1; attempt <= llmMaxAttempts; attempt++ {
		raw, err := s.provider.Generate(ctx, mappingSystemPrompt, prompt)
		if err != nil {
			lastErr = err
		} else {
			result, err := s.parseResponse(req, raw)
			if err == nil {
				return result, nil
			}
			lastErr = err
		}

		if attempt < llmMaxAttempts {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			log.Warn().Err(lastErr).Int("attempt", attempt).Dur("backoff", backoff).Msg("llm mapping attempt failed, retrying")
			s.sleep(backoff)
		}
	}

	return nil, &MappingSchemaError{Attempts: llmMaxAttempts, Reason: lastErr.Error()}
}

func (s *LLMStage) buildPrompt(req MapRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Statement type: %s\n\nCanonical taxonomy:\n", req.StatementType)
	for _, item := range Items(req.StatementType) {
		fmt.Fprintf(&b, "- %s: %s\n", item, Describe(item))
	}

	if len(req.MappedSiblings) > 0 {
		b.WriteString("\nAlready mapped rows from the same table (do not reuse their items unless clearly correct):\n")
		siblings := make([]string, 0, len(req.MappedSiblings))
		for label := range req.MappedSiblings {
			siblings = append(siblings, label)
		}
		sort.Strings(siblings)
		for _, label := range siblings {
			fmt.Fprintf(&b, "- %q -> %s\n", label, req.MappedSiblings[label])
		}
	}

	b.WriteString("\nLabels to map:\n")
	for _, label := range req.Labels {
		fmt.Fprintf(&b, "- %q\n", label)
	}

	return b.String()
}

// parseResponse validates shape strictly: every label must come from the
// request, items must be taxonomy members or "none", confidence in [0,1].
func (s *LLMStage) parseResponse(req MapRequest, raw string) (map[string]Candidate, error) {
	var entries []mappingEntry
	if err := utils.SmartParse(raw, &entries); err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(req.Labels))
	for _, label := range req.Labels {
		requested[label] = true
	}

	result := make(map[string]Candidate)
	for _, entry := range entries {
		if !requested[entry.Label] {
			return nil, fmt.Errorf("response contains unknown label %q", entry.Label)
		}
		if entry.Confidence < 0 || entry.Confidence > 1 {
			return nil, fmt.Errorf("confidence %v out of range for %q", entry.Confidence, entry.Label)
		}
		if entry.Item == "none" || entry.Item == "" {
			continue
		}
		item := LineItem(entry.Item)
		if !IsValid(req.StatementType, item) {
			return nil, fmt.Errorf("item %q not in %s taxonomy", entry.Item, req.StatementType)
		}
		result[entry.Label] = Candidate{Item: item, Confidence: entry.Confidence}
	}

	return result, nil
}
