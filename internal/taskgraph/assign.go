package taskgraph

import (
	"strings"

	"github.com/Iron-Ham/agentteam/internal/errors"
)

// Strategy selects how newly claimable tasks are handed to teammates.
type Strategy string

const (
	// StrategyManual leaves every task unassigned until it is claimed.
	StrategyManual Strategy = "manual"

	// StrategyRoundRobin cycles through the candidates in order.
	StrategyRoundRobin Strategy = "round_robin"

	// StrategyLeastBusy picks the candidate with the fewest in-progress
	// tasks, the earliest candidate on a tie.
	StrategyLeastBusy Strategy = "least_busy"
)

// ValidStrategies returns the accepted strategy strings.
func ValidStrategies() []string {
	return []string{string(StrategyManual), string(StrategyRoundRobin), string(StrategyLeastBusy)}
}

// ParseStrategy converts a string to a Strategy. The empty string means
// StrategyManual.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyManual:
		return StrategyManual, nil
	case StrategyRoundRobin:
		return StrategyRoundRobin, nil
	case StrategyLeastBusy:
		return StrategyLeastBusy, nil
	default:
		return "", errors.NewValidationError("unknown assignment strategy; expected one of " + strings.Join(ValidStrategies(), ", ")).
			WithField("assignment").WithValue(s)
	}
}

// Assigner picks assignees according to a Strategy. It keeps the
// round-robin position, so it is not safe for concurrent use.
type Assigner struct {
	strategy Strategy
	next     int
}

// NewAssigner creates an Assigner. An unknown strategy behaves as manual.
func NewAssigner(s Strategy) *Assigner {
	return &Assigner{strategy: s}
}

// Strategy returns the assigner's strategy.
func (a *Assigner) Strategy() Strategy {
	return a.strategy
}

// Pick returns the next assignee among candidates. load maps a candidate to
// its number of in-progress tasks; missing entries count as zero. It
// returns false for the manual strategy or when there are no candidates.
func (a *Assigner) Pick(candidates []string, load map[string]int) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	switch a.strategy {
	case StrategyRoundRobin:
		pick := candidates[a.next%len(candidates)]
		a.next++
		return pick, true
	case StrategyLeastBusy:
		best := candidates[0]
		for _, c := range candidates[1:] {
			if load[c] < load[best] {
				best = c
			}
		}
		return best, true
	default:
		return "", false
	}
}
