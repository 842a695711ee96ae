// Package scoring awards fantasy points to a squad from an episode outcome.
//
// The Engine evaluates an ordered rule table against one squad and one
// outcome. Evaluation is pure: the same squad, outcome and elimination
// lookup always yield the same events in the same order.
package scoring

import (
	"github.com/okian/fantabrigade/internal/domain/model"
)

// Lookup resolves a competitor's elimination status as of the episode being
// scored. ok is false when the id does not resolve to a competitor.
type Lookup interface {
	IsEliminated(competitorID string) (eliminated bool, ok bool)
}

// Roster is a Lookup backed by a bulk-resolved map of id -> eliminated.
// Ids missing from the map are unresolvable.
type Roster map[string]bool

// IsEliminated implements Lookup.
func (r Roster) IsEliminated(competitorID string) (bool, bool) {
	eliminated, ok := r[competitorID]
	return eliminated, ok
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRules replaces the rule table. Rules are evaluated in slice order.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) {
		if len(rules) > 0 {
			e.rules = append([]Rule(nil), rules...)
		}
	}
}

// Scorer computes a squad's result for one episode.
type Scorer interface {
	Evaluate(squad model.Squad, outcome *model.EpisodeOutcome, lookup Lookup) model.ScoringResult
}

// Engine implements Scorer over a rule table.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine using the canonical rule table unless
// overridden by options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{rules: DefaultRules()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns a copy of the engine's rule table.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate runs every rule and concatenates the events in rule order.
//
// Squad members that the lookup cannot resolve never score. A nil lookup
// treats every member as resolvable and not yet eliminated. A nil outcome
// scores nothing.
func (e *Engine) Evaluate(squad model.Squad, outcome *model.EpisodeOutcome, lookup Lookup) model.ScoringResult {
	if outcome == nil {
		return model.NewScoringResult(nil)
	}
	in := newInput(squad, outcome, lookup)

	var events []model.ScoreEvent
	for _, r := range e.rules {
		for _, id := range r.Eval(in) {
			events = append(events, model.ScoreEvent{
				Kind:         r.Kind,
				CompetitorID: id,
				PointDelta:   r.Points,
			})
		}
	}
	return model.NewScoringResult(events)
}

// Input is the read-only view a rule evaluates.
type Input struct {
	// Members are the resolvable squad members in deployment order.
	Members []string
	Outcome *model.EpisodeOutcome

	squad      map[string]struct{}
	eliminated map[string]bool
}

func newInput(squad model.Squad, outcome *model.EpisodeOutcome, lookup Lookup) *Input {
	in := &Input{
		Outcome:    outcome,
		squad:      make(map[string]struct{}, len(squad.Competitors)),
		eliminated: make(map[string]bool, len(squad.Competitors)),
	}
	for _, id := range squad.Members() {
		eliminated, ok := false, true
		if lookup != nil {
			eliminated, ok = lookup.IsEliminated(id)
		}
		if !ok {
			continue
		}
		in.Members = append(in.Members, id)
		in.squad[id] = struct{}{}
		in.eliminated[id] = eliminated
	}
	return in
}

// InSquad reports whether id is a resolvable squad member.
func (in *Input) InSquad(id string) bool {
	_, ok := in.squad[id]
	return ok
}

// EliminatedBefore reports the member's status prior to this episode.
func (in *Input) EliminatedBefore(id string) bool {
	return in.eliminated[id]
}

// Intersect returns the squad members found in list, in list order, once each.
func (in *Input) Intersect(list []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, id := range list {
		if !in.InSquad(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
