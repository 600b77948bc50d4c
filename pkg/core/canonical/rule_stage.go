package canonical

import "context"

// RuleStage matches labels against the curated alias table. Matches carry
// confidence 1.0; everything else defers to the next stage.
type RuleStage struct{}

// NewRuleStage creates the deterministic first mapping stage.
func NewRuleStage() *RuleStage {
	return &RuleStage{}
}

func (s *RuleStage) Name() string { return "rules" }

func (s *RuleStage) Map(_ context.Context, req MapRequest) (map[string]Candidate, error) {
	result := make(map[string]Candidate)
	for _, label := range req.Labels {
		if item, ok := LookupAlias(req.StatementType, label); ok {
			result[label] = Candidate{Item: item, Confidence: 1.0}
		}
	}
	return result, nil
}
