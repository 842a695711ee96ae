package model

import (
	"fmt"
	"time"
)

// EpisodeKey identifies a broadcast episode.
type EpisodeKey struct {
	Edition int `json:"editionNumber"`
	Number  int `json:"number"`
}

// Before orders keys by edition, then episode number.
func (k EpisodeKey) Before(other EpisodeKey) bool {
	if k.Edition != other.Edition {
		return k.Edition < other.Edition
	}
	return k.Number < other.Number
}

// String renders the key as "edition/number".
func (k EpisodeKey) String() string {
	return fmt.Sprintf("%d/%d", k.Edition, k.Number)
}

// EpisodeOutcome is the recorded result of one episode.
//
// Podium lists are ranked (index 0 is the winner) and brigade lists are
// ordered (index 0 is the head). Every other list is a set. Lists may
// overlap and may contain ids that no longer resolve to a competitor.
type EpisodeOutcome struct {
	Key         EpisodeKey `json:"key"`
	IsOutside   bool       `json:"isOutside"`
	AiredAt     time.Time  `json:"date"`
	Description string     `json:"description,omitempty"`

	MysteryBoxPodium    []string `json:"mysteryBoxPodium"`
	MysteryBoxWorst     []string `json:"mysteryBoxWorst"`
	InventionTestPodium []string `json:"inventionTestPodium"`
	InventionTestWorst  []string `json:"inventionTestWorst"`
	RedBrigade          []string `json:"redBrigade"`
	BlueBrigade         []string `json:"blueBrigade"`
	PressureTest        []string `json:"pressureTest"`
	Eliminated          []string `json:"eliminated"`

	// RedBrigadeWins is unset until the outside challenge is decided.
	RedBrigadeWins *bool `json:"redBrigadeWins,omitempty"`
}

// HasOutsideChallenge reports whether the brigade rules apply: the episode
// is outside and both brigades have been assigned.
func (o *EpisodeOutcome) HasOutsideChallenge() bool {
	return o.IsOutside && len(o.RedBrigade) > 0 && len(o.BlueBrigade) > 0
}

// ReferencedIDs returns every competitor id mentioned by the outcome, once.
func (o *EpisodeOutcome) ReferencedIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, list := range [][]string{
		o.MysteryBoxPodium, o.MysteryBoxWorst,
		o.InventionTestPodium, o.InventionTestWorst,
		o.RedBrigade, o.BlueBrigade,
		o.PressureTest, o.Eliminated,
	} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// OutcomePatch carries a partial results upload. Nil lists leave the stored
// value untouched.
type OutcomePatch struct {
	MysteryBoxPodium    []string
	MysteryBoxWorst     []string
	InventionTestPodium []string
	InventionTestWorst  []string
	RedBrigade          []string
	BlueBrigade         []string
	PressureTest        []string
	Eliminated          []string
	RedBrigadeWins      *bool
}

// Apply merges the patch into o.
func (p OutcomePatch) Apply(o *EpisodeOutcome) {
	set := func(dst *[]string, src []string) {
		if src != nil {
			*dst = append([]string(nil), src...)
		}
	}
	set(&o.MysteryBoxPodium, p.MysteryBoxPodium)
	set(&o.MysteryBoxWorst, p.MysteryBoxWorst)
	set(&o.InventionTestPodium, p.InventionTestPodium)
	set(&o.InventionTestWorst, p.InventionTestWorst)
	set(&o.RedBrigade, p.RedBrigade)
	set(&o.BlueBrigade, p.BlueBrigade)
	set(&o.PressureTest, p.PressureTest)
	set(&o.Eliminated, p.Eliminated)
	if p.RedBrigadeWins != nil {
		v := *p.RedBrigadeWins
		o.RedBrigadeWins = &v
	}
}

// Clone returns a deep copy of the outcome.
func (o *EpisodeOutcome) Clone() *EpisodeOutcome {
	cp := *o
	for _, l := range []*[]string{
		&cp.MysteryBoxPodium, &cp.MysteryBoxWorst,
		&cp.InventionTestPodium, &cp.InventionTestWorst,
		&cp.RedBrigade, &cp.BlueBrigade,
		&cp.PressureTest, &cp.Eliminated,
	} {
		if *l != nil {
			*l = append([]string(nil), (*l)...)
		}
	}
	if o.RedBrigadeWins != nil {
		v := *o.RedBrigadeWins
		cp.RedBrigadeWins = &v
	}
	return &cp
}
