package seed

import (
	"fmt"
	"os"

	"github.com/okian/fantabrigade/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// Fixture describes a league to seed. Competitors are referred to by their
// fixture key everywhere else in the file.
type Fixture struct {
	League      *FixtureLeague      `yaml:"league"`
	Brigades    []FixtureBrigade    `yaml:"brigades"`
	Competitors []FixtureCompetitor `yaml:"competitors"`
	Episodes    []FixtureEpisode    `yaml:"episodes"`
	Deployments []FixtureDeployment `yaml:"deployments"`
	Expected    []Expectation       `yaml:"expected"`
}

// FixtureLeague is the league to seed into. Without one the fixture lands in
// the default league.
type FixtureLeague struct {
	ID     string   `yaml:"id" json:"id,omitempty"`
	Name   string   `yaml:"name" json:"name"`
	Admins []string `yaml:"admins" json:"admins"`
}

// FixtureBrigade is one manager's roster.
type FixtureBrigade struct {
	Manager      string   `yaml:"manager"`
	Participants []string `yaml:"participants"`
}

// FixtureCompetitor is one contestant.
type FixtureCompetitor struct {
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	LastName string `yaml:"lastName"`
	Edition  int    `yaml:"edition"`
}

// FixtureEpisode is an episode and the results to load for it.
type FixtureEpisode struct {
	Edition   int            `yaml:"edition"`
	Number    int            `yaml:"number"`
	IsOutside bool           `yaml:"isOutside"`
	Results   FixtureResults `yaml:"results"`
}

// Key returns the episode key.
func (e FixtureEpisode) Key() model.EpisodeKey {
	return model.EpisodeKey{Edition: e.Edition, Number: e.Number}
}

// FixtureResults lists competitor keys per outcome list.
type FixtureResults struct {
	MysteryBoxPodium    []string `yaml:"mysteryBoxPodium" json:"mysteryBoxPodium,omitempty"`
	MysteryBoxWorst     []string `yaml:"mysteryBoxWorst" json:"mysteryBoxWorst,omitempty"`
	InventionTestPodium []string `yaml:"inventionTestPodium" json:"inventionTestPodium,omitempty"`
	InventionTestWorst  []string `yaml:"inventionTestWorst" json:"inventionTestWorst,omitempty"`
	RedBrigade          []string `yaml:"redBrigade" json:"redBrigade,omitempty"`
	BlueBrigade         []string `yaml:"blueBrigade" json:"blueBrigade,omitempty"`
	PressureTest        []string `yaml:"pressureTest" json:"pressureTest,omitempty"`
	Eliminated          []string `yaml:"eliminated" json:"eliminated,omitempty"`
	RedBrigadeWins      *bool    `yaml:"redBrigadeWins" json:"redBrigadeWins,omitempty"`
}

func (r *FixtureResults) lists() []*[]string {
	return []*[]string{
		&r.MysteryBoxPodium, &r.MysteryBoxWorst,
		&r.InventionTestPodium, &r.InventionTestWorst,
		&r.RedBrigade, &r.BlueBrigade,
		&r.PressureTest, &r.Eliminated,
	}
}

// resolve maps competitor keys to server ids.
func (r FixtureResults) resolve(ids map[string]string) FixtureResults {
	out := r
	for _, l := range out.lists() {
		if *l == nil {
			continue
		}
		mapped := make([]string, len(*l))
		for i, key := range *l {
			mapped[i] = ids[key]
		}
		*l = mapped
	}
	return out
}

// FixtureDeployment is one manager's squad for one episode.
type FixtureDeployment struct {
	Manager      string   `yaml:"manager"`
	Edition      int      `yaml:"edition"`
	Number       int      `yaml:"number"`
	Participants []string `yaml:"participants"`
}

// Expectation is a manager's expected total on the leaderboard.
type Expectation struct {
	Manager string `yaml:"manager"`
	Points  int    `yaml:"points"`
}

// LoadFixture reads and validates a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFixture, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every reference in the fixture resolves.
func (f *Fixture) Validate() error {
	keys := make(map[string]struct{}, len(f.Competitors))
	for _, c := range f.Competitors {
		if c.Key == "" {
			return fmt.Errorf("%w: competitor %s %s has no key", ErrFixture, c.Name, c.LastName)
		}
		if _, dup := keys[c.Key]; dup {
			return fmt.Errorf("%w: duplicate competitor key %q", ErrFixture, c.Key)
		}
		keys[c.Key] = struct{}{}
	}

	if f.League != nil && (f.League.Name == "" || len(f.League.Admins) == 0) {
		return fmt.Errorf("%w: league needs a name and at least one admin", ErrFixture)
	}
	for _, b := range f.Brigades {
		if b.Manager == "" {
			return fmt.Errorf("%w: brigade has no manager", ErrFixture)
		}
		for _, p := range b.Participants {
			if _, ok := keys[p]; !ok {
				return fmt.Errorf("%w: brigade of %s references unknown competitor %q", ErrFixture, b.Manager, p)
			}
		}
	}

	episodes := make(map[model.EpisodeKey]struct{}, len(f.Episodes))
	for _, e := range f.Episodes {
		episodes[e.Key()] = struct{}{}
		for _, l := range e.Results.lists() {
			for _, key := range *l {
				if _, ok := keys[key]; !ok {
					return fmt.Errorf("%w: episode %s references unknown competitor %q", ErrFixture, e.Key(), key)
				}
			}
		}
	}

	for _, d := range f.Deployments {
		key := model.EpisodeKey{Edition: d.Edition, Number: d.Number}
		if d.Manager == "" {
			return fmt.Errorf("%w: deployment for %s has no manager", ErrFixture, key)
		}
		if _, ok := episodes[key]; !ok {
			return fmt.Errorf("%w: deployment of %s targets unknown episode %s", ErrFixture, d.Manager, key)
		}
		for _, p := range d.Participants {
			if _, ok := keys[p]; !ok {
				return fmt.Errorf("%w: deployment of %s references unknown competitor %q", ErrFixture, d.Manager, p)
			}
		}
	}
	return nil
}
