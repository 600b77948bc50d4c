package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"fincanon/pkg/core/canonical"
	"fincanon/pkg/core/edgar"
	"fincanon/pkg/core/llm"
	"fincanon/pkg/core/pipeline"
	"fincanon/pkg/core/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg(".env file not found, assuming environment variables are set")
	}

	query := flag.String("company", "", "ticker or company name, e.g. AAPL or \"Apple Inc\"")
	form := flag.String("form", "10-K", "filing form type (10-K or 10-Q)")
	statements := flag.String("statements", "income_statement,balance_sheet,cash_flow", "comma-separated statement types")
	noLLM := flag.Bool("no-llm", false, "skip the LLM mapping fallback")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall run timeout")
	flag.Parse()

	if *query == "" {
		fmt.Fprintln(os.Stderr, "usage: pipeline -company AAPL [-form 10-K] [-statements income_statement,balance_sheet,cash_flow]")
		os.Exit(2)
	}

	stmtTypes, err := parseStatements(*statements)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -statements")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stages := []canonical.Stage{canonical.NewRuleStage()}
	if !*noLLM {
		if os.Getenv("GEMINI_API_KEY") == "" {
			log.Warn().Msg("GEMINI_API_KEY not set, continuing with rule mapping only")
		} else {
			stages = append(stages, canonical.NewLLMStage(llm.NewProviderFromEnv()))
		}
	}

	stmtCache := store.NewStatementCacheFromEnv(ctx)
	defer stmtCache.Close()

	client := edgar.NewClient()
	orch := pipeline.NewOrchestrator(client, edgar.NewResolver(client), canonical.NewMapper(stages...), stmtCache)

	result, err := orch.Run(ctx, *query, *form, stmtTypes)
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline run failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal().Err(err).Msg("failed to encode result")
	}
}

func parseStatements(s string) ([]edgar.StatementType, error) {
	var out []edgar.StatementType
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st := edgar.StatementType(part)
		switch st {
		case edgar.IncomeStatement, edgar.BalanceSheet, edgar.CashFlow:
			out = append(out, st)
		default:
			return nil, fmt.Errorf("unknown statement type %q", part)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no statement types given")
	}
	return out, nil
}
