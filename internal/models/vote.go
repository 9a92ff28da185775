package models

import (
	"errors"
	"math"
)

// VoteAggregate holds the tug-of-war sentiment counts for one symbol and the
// percentages derived from them.
type VoteAggregate struct {
	Symbol  string `json:"symbol"`
	Bulls   int    `json:"bulls"`
	Bears   int    `json:"bears"`
	BullPct int    `json:"bull_pct"`
	BearPct int    `json:"bear_pct"`
}

// ComputePercentages derives BullPct and BearPct from the raw counts.
// With zero votes both sides read 50. The total is floored at 1 so the
// division is always defined; because the sides are rounded independently
// the percentages may be off 100 by one point.
func (a *VoteAggregate) ComputePercentages() {
	if a.Bulls == 0 && a.Bears == 0 {
		a.BullPct, a.BearPct = 50, 50
		return
	}
	total := a.Bulls + a.Bears
	if total < 1 {
		total = 1
	}
	a.BullPct = int(math.Round(float64(a.Bulls) / float64(total) * 100))
	a.BearPct = int(math.Round(float64(a.Bears) / float64(total) * 100))
}

// Validate checks that the aggregate counts are valid.
func (a *VoteAggregate) Validate() error {
	if a.Symbol == "" {
		return errors.New("vote aggregate symbol must not be empty")
	}
	if a.Bulls < 0 {
		return errors.New("bull count must not be negative")
	}
	if a.Bears < 0 {
		return errors.New("bear count must not be negative")
	}
	return nil
}

// StockVoteState is the caller's view of one symbol's tug-of-war vote:
// the aggregate plus the caller's own current choice, if any.
type StockVoteState struct {
	Aggregate VoteAggregate `json:"aggregate"`
	MyVote    *Sentiment    `json:"my_vote,omitempty"` // nil = not voted
}
