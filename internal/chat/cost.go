package chat

import (
	"fmt"
	"math"

	"chatdesk/internal/domain"
)

// CostEstimate is the expected price of sending a set of documents to a model.
type CostEstimate struct {
	InputTokens int     `json:"inputTokens"`
	Prompts     int     `json:"prompts"`
	InputCost   float64 `json:"inputCost"`
	OutputCost  float64 `json:"outputCost"`
	TotalCost   float64 `json:"totalCost"`
	// Known is false when the model has no cost data; only InputTokens is meaningful then.
	Known bool `json:"known"`
}

// EstimateCost prices documents against model. The documents are split into
// as many prompts as the model's token limit requires; each prompt is billed
// the model's output cost, and input is billed per 1000 tokens.
func EstimateCost(model domain.Model, docs []domain.AttachedDocument) CostEstimate {
	tokens := 0
	for _, d := range docs {
		tokens += d.TotalTokens()
	}
	est := CostEstimate{InputTokens: tokens}

	if model.ActualTokenLimit <= 0 {
		return est
	}

	est.Known = true
	est.Prompts = int(math.Ceil(float64(tokens) / float64(model.ActualTokenLimit)))
	est.OutputCost = round2(float64(est.Prompts) * model.OutputCost)
	est.InputCost = round2(float64(tokens) / 1000 * model.InputCost)
	est.TotalCost = round2(est.InputCost + est.OutputCost)
	return est
}

// Message is the text shown when asking the user to confirm.
func (e CostEstimate) Message() string {
	if !e.Known {
		return fmt.Sprintf("this request will send %d tokens to a model with unknown pricing", e.InputTokens)
	}
	return fmt.Sprintf("this request will cost an estimated $%.2f (%d tokens in %d prompts)",
		e.TotalCost, e.InputTokens, e.Prompts)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
