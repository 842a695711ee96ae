package scoring

import (
	"slices"

	"github.com/okian/fantabrigade/internal/domain/model"
)

// Point deltas per qualifying competitor.
const (
	PointsMysteryBoxPodium      = 5
	PointsMysteryBoxWinner      = 10
	PointsInventionTestPodium   = 10
	PointsDoubleWinner          = 20
	PointsInventionTestWorst    = -5
	PointsNotDeployedExternally = -10
	PointsHeadOfBrigade         = 15
	PointsWinningBrigadeMember  = 10
	PointsPressureTest          = -5
	PointsEliminated            = -15
)

// Rule awards Points to every competitor id returned by Eval.
type Rule struct {
	Kind   model.RuleKind
	Points int
	Eval   func(in *Input) []string
}

// DefaultRules returns the canonical rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: model.RuleMysteryBoxPodium, Points: PointsMysteryBoxPodium, Eval: mysteryBoxPodium},
		{Kind: model.RuleMysteryBoxWinner, Points: PointsMysteryBoxWinner, Eval: mysteryBoxWinner},
		{Kind: model.RuleInventionTestPodium, Points: PointsInventionTestPodium, Eval: inventionTestPodium},
		{Kind: model.RuleDoubleWinner, Points: PointsDoubleWinner, Eval: doubleWinner},
		{Kind: model.RuleInventionTestWorst, Points: PointsInventionTestWorst, Eval: inventionTestWorst},
		{Kind: model.RuleNotDeployedExternally, Points: PointsNotDeployedExternally, Eval: notDeployedExternally},
		{Kind: model.RuleHeadOfRedBrigade, Points: PointsHeadOfBrigade, Eval: headOfRedBrigade},
		{Kind: model.RuleHeadOfBlueBrigade, Points: PointsHeadOfBrigade, Eval: headOfBlueBrigade},
		{Kind: model.RuleWinningBrigadeMember, Points: PointsWinningBrigadeMember, Eval: winningBrigadeMember},
		{Kind: model.RulePressureTest, Points: PointsPressureTest, Eval: pressureTest},
		{Kind: model.RuleEliminated, Points: PointsEliminated, Eval: eliminated},
	}
}

// leader returns list[0] when it is a squad member.
func leader(in *Input, list []string) []string {
	if len(list) == 0 || !in.InSquad(list[0]) {
		return nil
	}
	return []string{list[0]}
}

func mysteryBoxPodium(in *Input) []string {
	return in.Intersect(in.Outcome.MysteryBoxPodium)
}

func mysteryBoxWinner(in *Input) []string {
	return leader(in, in.Outcome.MysteryBoxPodium)
}

func inventionTestPodium(in *Input) []string {
	return in.Intersect(in.Outcome.InventionTestPodium)
}

// doubleWinner fires once, for the mystery box winner, when that winner is
// anywhere on the invention test podium.
func doubleWinner(in *Input) []string {
	winner := leader(in, in.Outcome.MysteryBoxPodium)
	if winner == nil || !slices.Contains(in.Outcome.InventionTestPodium, winner[0]) {
		return nil
	}
	return winner
}

func inventionTestWorst(in *Input) []string {
	return in.Intersect(in.Outcome.InventionTestWorst)
}

// notDeployedExternally penalizes members left out of both brigades, unless
// they were already out before this episode. A member eliminated by this
// very episode is still penalized.
func notDeployedExternally(in *Input) []string {
	o := in.Outcome
	if !o.HasOutsideChallenge() {
		return nil
	}
	var out []string
	for _, id := range in.Members {
		if slices.Contains(o.RedBrigade, id) || slices.Contains(o.BlueBrigade, id) {
			continue
		}
		if in.EliminatedBefore(id) && !slices.Contains(o.Eliminated, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func headOfRedBrigade(in *Input) []string {
	if !in.Outcome.HasOutsideChallenge() {
		return nil
	}
	return leader(in, in.Outcome.RedBrigade)
}

func headOfBlueBrigade(in *Input) []string {
	if !in.Outcome.HasOutsideChallenge() {
		return nil
	}
	return leader(in, in.Outcome.BlueBrigade)
}

func winningBrigadeMember(in *Input) []string {
	o := in.Outcome
	if o.RedBrigadeWins == nil || !o.HasOutsideChallenge() {
		return nil
	}
	if *o.RedBrigadeWins {
		return in.Intersect(o.RedBrigade)
	}
	return in.Intersect(o.BlueBrigade)
}

func pressureTest(in *Input) []string {
	return in.Intersect(in.Outcome.PressureTest)
}

func eliminated(in *Input) []string {
	return in.Intersect(in.Outcome.Eliminated)
}
