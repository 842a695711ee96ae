package model

// RuleKind names a scoring rule.
type RuleKind string

// Rule kinds, in canonical evaluation order.
const (
	RuleMysteryBoxPodium      RuleKind = "MysteryBoxPodium"
	RuleMysteryBoxWinner      RuleKind = "MysteryBoxWinner"
	RuleInventionTestPodium   RuleKind = "InventionTestPodium"
	RuleDoubleWinner          RuleKind = "DoubleWinner"
	RuleInventionTestWorst    RuleKind = "InventionTestWorst"
	RuleNotDeployedExternally RuleKind = "NotDeployedExternally"
	RuleHeadOfRedBrigade      RuleKind = "HeadOfRedBrigade"
	RuleHeadOfBlueBrigade     RuleKind = "HeadOfBlueBrigade"
	RuleWinningBrigadeMember  RuleKind = "WinningBrigadeMember"
	RulePressureTest          RuleKind = "PressureTest"
	RuleEliminated            RuleKind = "Eliminated"
)

// ScoreEvent is one itemized award or penalty.
type ScoreEvent struct {
	Kind         RuleKind `json:"ruleKind"`
	CompetitorID string   `json:"competitorId"`
	PointDelta   int      `json:"pointDelta"`
}

// ScoringResult is the persisted outcome of scoring one squad for one episode.
type ScoringResult struct {
	Events      []ScoreEvent `json:"events"`
	TotalPoints int          `json:"totalPoints"`
}

// NewScoringResult builds a result whose total is the sum of the event deltas.
func NewScoringResult(events []ScoreEvent) ScoringResult {
	total := 0
	for _, e := range events {
		total += e.PointDelta
	}
	if events == nil {
		events = []ScoreEvent{}
	}
	return ScoringResult{Events: events, TotalPoints: total}
}
