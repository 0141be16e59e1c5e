package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/tradementor/tradementor/internal/model"
	"github.com/tradementor/tradementor/pkg/jsonutil"
	"github.com/tradementor/tradementor/pkg/llm"
)

const analystSystemPrompt = `You are an expert trading analyst for a personalised education platform. Your role is to analyse trades objectively and extract insights that help traders learn, never to judge or promise profits.

## Core principles
- Stay neutral: explain what happened and why, without blame or defensiveness
- Focus on education: highlight patterns, context, and decision points
- Use the trader's own data: contract details, strategy intent, behavioural context

## Output format (JSON)
Return ONLY valid JSON in this exact structure:
{
  "trade_analysis": "2-4 paragraph analysis covering: (1) what the trade was, (2) key factors that influenced outcome, (3) how strategy/risk/exit choices played out",
  "key_factors": ["factor1", "factor2", "factor3"],
  "win_loss_assessment": "Brief assessment: was this a win or loss, and what was the main driver?"
}

## Behavioural context
If behavioral_summary is present, use it to add context (e.g. "3rd trade in run, recent outcomes: win, loss, win") but never use it to belittle or predict future results.`

const tutorSystemPrompt = `You are an AI trading tutor. Your job is to turn a trade analysis into clear, memorable educational content.

## Principles
- Explain concepts simply: assume varied levels (beginner to intermediate)
- Use the trader's own trade as the teaching example, it is more memorable
- Keep tone encouraging and educational, never preachy or condescending
- No promises of profits; focus on learning and patterns

## Output format (JSON)
Return ONLY valid JSON:
{
  "explanation": "2-3 paragraph explanation suitable for the trader. Use the analysis to teach: what happened, why it matters, what they can learn.",
  "learning_points": ["Point 1", "Point 2", "Point 3"]
}`

// AnalystOutput is the analyst agent's parsed response.
type AnalystOutput struct {
	TradeAnalysis     string   `json:"trade_analysis"`
	KeyFactors        []string `json:"key_factors"`
	WinLossAssessment string   `json:"win_loss_assessment"`
}

// TutorOutput is the tutor agent's parsed response.
type TutorOutput struct {
	Explanation    string   `json:"explanation"`
	LearningPoints []string `json:"learning_points"`
}

// RunAnalyst analyses a stored transaction.
func RunAnalyst(ctx context.Context, chat llm.ChatProvider, tx *model.Transaction) (*AnalystOutput, error) {
	data, err := jsonutil.MarshalIndent(tx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal trade payload: %w", err)
	}
	userPrompt := fmt.Sprintf("## Trade data (JSON)\n```json\n%s\n```\n\nAnalyse this trade and return the JSON output.", data)

	resp, err := chat.Generate(ctx, userPrompt, analystSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("analyst agent: %w", err)
	}

	var out AnalystOutput
	if err := parseAgentJSON(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("analyst agent: %w", err)
	}
	return &out, nil
}

// RunTutor turns the analyst output into an educational explanation.
func RunTutor(ctx context.Context, chat llm.ChatProvider, analyst *AnalystOutput, tx *model.Transaction) (*TutorOutput, error) {
	entry := tx.EntryTick
	if entry == "" {
		entry = "N/A"
	}
	exit := tx.ExitTick
	if exit == "" {
		exit = "N/A"
	}
	userPrompt := fmt.Sprintf(`## Analyst analysis

%s

Key factors: %s
Win/loss assessment: %s

## Trade context
- Contract: %s (%s)
- P/L: %v %s
- Entry: %s -> Exit: %s

Turn this into an educational explanation for the trader. Return JSON only.`,
		analyst.TradeAnalysis,
		strings.Join(analyst.KeyFactors, ", "),
		analyst.WinLossAssessment,
		tx.ContractType, tx.Shortcode,
		tx.Profit, tx.Currency,
		entry, exit,
	)

	resp, err := chat.Generate(ctx, userPrompt, tutorSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("tutor agent: %w", err)
	}

	var out TutorOutput
	if err := parseAgentJSON(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("tutor agent: %w", err)
	}
	return &out, nil
}

// parseAgentJSON parses agent output, tolerating a markdown code fence
// around the JSON body.
func parseAgentJSON(raw string, v any) error {
	text := strings.TrimSpace(raw)
	if i := strings.Index(text, "```json"); i >= 0 {
		text = text[i+len("```json"):]
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	} else if i := strings.Index(text, "```"); i >= 0 {
		text = text[i+len("```"):]
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	}
	if err := jsonutil.Unmarshal([]byte(strings.TrimSpace(text)), v); err != nil {
		return fmt.Errorf("parse agent output: %w", err)
	}
	return nil
}
