// Package pipeline wires the extraction stages into an end-to-end run:
// locate filing, extract tables, normalize, map, validate, store.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"fincanon/pkg/core/canonical"
	"fincanon/pkg/core/edgar"
	"fincanon/pkg/core/extract"
	"fincanon/pkg/core/normalize"
	"fincanon/pkg/core/store"
	"fincanon/pkg/core/validate"
)

// StageError identifies which stage failed for which filing and statement.
type StageError struct {
	Stage         string
	Filing        edgar.Filing
	StatementType edgar.StatementType
	Err           error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for %s %s (%s): %v", e.Stage, e.Filing.Ticker, e.StatementType, e.Filing.AccessionNumber, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StatementResult is the outcome of one statement's run.
type StatementResult struct {
	StatementType edgar.StatementType           `json:"statement_type"`
	Statement     *canonical.CanonicalStatement `json:"statement,omitempty"`
	Diagnostics   *validate.Diagnostics         `json:"diagnostics,omitempty"`
	Warnings      []string                      `json:"warnings,omitempty"`
	Error         string                        `json:"error,omitempty"`
	FromCache     bool                          `json:"from_cache"`
	Elapsed       time.Duration                 `json:"elapsed_ns"`
}

// RunResult is the outcome of one full pipeline run.
type RunResult struct {
	RunID      uuid.UUID         `json:"run_id"`
	Company    edgar.CompanyRecord `json:"company"`
	Filing     edgar.Filing      `json:"filing"`
	Statements []StatementResult `json:"statements"`
}

// Orchestrator owns the stage instances and caches for a run.
type Orchestrator struct {
	client     *edgar.Client
	resolver   edgar.CIKResolver
	locator    *edgar.Locator
	extractor  *extract.Extractor
	normalizer *normalize.Normalizer
	mapper     *canonical.Mapper
	validator  *validate.Validator

	docCache  *edgar.DocumentCache
	stmtCache *store.StatementCache
}

// NewOrchestrator assembles the standard stage chain. mapper decides the
// rule/LLM strategy; pass canonical.NewMapper(canonical.NewRuleStage()) to
// run without an LLM.
func NewOrchestrator(client *edgar.Client, resolver edgar.CIKResolver, mapper *canonical.Mapper, stmtCache *store.StatementCache) *Orchestrator {
	return &Orchestrator{
		client:     client,
		resolver:   resolver,
		locator:    edgar.NewLocator(client),
		extractor:  extract.NewExtractor(),
		normalizer: normalize.NewNormalizer(),
		mapper:     mapper,
		validator:  validate.NewValidator(),
		docCache:   edgar.NewDocumentCache(),
		stmtCache:  stmtCache,
	}
}

// SetDocumentCache overrides the default document cache. Used in tests to
// keep cache files out of the working directory.
func (o *Orchestrator) SetDocumentCache(cache *edgar.DocumentCache) {
	o.docCache = cache
}

// Run resolves query to a company, locates its latest filing of the given
// form, and processes the requested statements. A statement failure is
// recorded in its result; only locate-level failures abort the run.
func (o *Orchestrator) Run(ctx context.Context, query, form string, statements []edgar.StatementType) (*RunResult, error) {
	runID := uuid.New()
	started := time.Now()

	company, err := o.resolver.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	log.Info().Str("run_id", runID.String()).Str("ticker", company.Ticker).Str("cik", company.CIK).Msg("company resolved")

	filing, err := o.locator.Latest(ctx, company.CIK, form)
	if err != nil {
		return nil, err
	}
	filing.Ticker = company.Ticker
	log.Info().Str("run_id", runID.String()).Str("accession", filing.AccessionNumber).Time("filed", filing.FilingDate).Msg("filing located")

	result := &RunResult{RunID: runID, Company: company, Filing: filing}

	documentHTML := ""
	for _, st := range statements {
		stmtResult := o.runStatement(ctx, filing, st, &documentHTML)
		result.Statements = append(result.Statements, stmtResult)
	}

	log.Info().Str("run_id", runID.String()).Dur("elapsed", time.Since(started)).Int("statements", len(result.Statements)).Msg("pipeline run complete")
	return result, nil
}

// runStatement processes one statement type. documentHTML is fetched once
// and shared across statements through the pointer.
func (o *Orchestrator) runStatement(ctx context.Context, filing edgar.Filing, st edgar.StatementType, documentHTML *string) StatementResult {
	started := time.Now()
	res := StatementResult{StatementType: st}

	defer func() { res.Elapsed = time.Since(started) }()

	if o.stmtCache != nil {
		if cached, err := o.stmtCache.Get(ctx, filing.AccessionNumber, st); err == nil && cached != nil {
			res.Statement = cached
			res.Diagnostics = o.validator.Validate(cached)
			res.FromCache = true
			return res
		}
	}

	if *documentHTML == "" {
		html, err := o.fetchDocument(ctx, filing)
		if err != nil {
			res.Error = (&StageError{Stage: "fetch", Filing: filing, StatementType: st, Err: err}).Error()
			return res
		}
		*documentHTML = html
	}

	raw, warnings, err := o.extractor.Extract(filing, *documentHTML, st)
	if err != nil {
		res.Error = (&StageError{Stage: "extract", Filing: filing, StatementType: st, Err: err}).Error()
		return res
	}
	for _, w := range warnings {
		res.Warnings = append(res.Warnings, w.Message)
	}

	normalized, cellWarnings := o.normalizer.Normalize(raw)
	for _, w := range cellWarnings {
		res.Warnings = append(res.Warnings, fmt.Sprintf("unparseable cell %q in row %q", w.Cell, w.Row))
	}
	if !normalized.ScaleConfident {
		res.Warnings = append(res.Warnings, "reporting scale not detected, values assumed to be in units")
	}

	stmt := o.mapper.Map(ctx, normalized)
	res.Statement = stmt
	res.Diagnostics = o.validator.Validate(stmt)

	if o.stmtCache != nil {
		if err := o.stmtCache.Save(ctx, stmt); err != nil {
			log.Warn().Err(err).Str("accession", filing.AccessionNumber).Msg("statement cache save failed")
		}
	}

	log.Info().Str("accession", filing.AccessionNumber).Str("statement", string(st)).Int("items", len(stmt.Items)).Int("unmapped", len(stmt.Unmapped)).Float64("completeness", res.Diagnostics.Completeness).Dur("elapsed", time.Since(started)).Msg("statement processed")
	return res
}

func (o *Orchestrator) fetchDocument(ctx context.Context, filing edgar.Filing) (string, error) {
	if o.docCache != nil {
		if cached := o.docCache.Get(filing.CIK, filing.AccessionNumber); cached != "" {
			return cached, nil
		}
	}

	html, err := o.client.FetchDocument(ctx, filing)
	if err != nil {
		return "", err
	}

	if o.docCache != nil {
		if err := o.docCache.Set(filing.CIK, filing.AccessionNumber, html); err != nil {
			log.Warn().Err(err).Msg("document cache write failed")
		}
	}
	return html, nil
}
