package seed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/fantabrigade/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Run seeds the fixture and, when cfg.Verify is set, checks the leaderboard.
//
// Steps run in dependency order: the league, competitors, rosters, episodes,
// deployments, then per episode the results upload followed by a synchronous
// recompute, so eliminations from earlier episodes are in place before later
// ones score.
func Run(ctx context.Context, cfg *Config, f *Fixture) (*Summary, error) {
	log := logger.Get().Named("seed")
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	summary := &Summary{StartTime: time.Now(), Flagged: []string{}}

	if f.League != nil {
		id, err := client.SaveLeague(ctx, *f.League)
		if err != nil {
			return summary, fmt.Errorf("league %s: %w", f.League.Name, err)
		}
		client.UseLeague(id)
		summary.League = id
		log.Info(ctx, "league ready", logger.String("league_id", id))
	}

	ids, err := createCompetitors(ctx, client, cfg, f.Competitors)
	if err != nil {
		return summary, err
	}
	summary.Competitors = len(ids)
	log.Info(ctx, "competitors created", logger.Int("count", len(ids)))

	for _, b := range f.Brigades {
		if err := client.SaveBrigade(ctx, b.Manager, resolveKeys(ids, b.Participants)); err != nil {
			return summary, fmt.Errorf("brigade of %s: %w", b.Manager, err)
		}
		summary.Brigades++
	}

	for _, e := range f.Episodes {
		if err := client.SaveEpisode(ctx, e); err != nil {
			return summary, fmt.Errorf("episode %s: %w", e.Key(), err)
		}
		summary.Episodes++
	}

	for _, d := range f.Deployments {
		err := client.Deploy(ctx, d.Manager, deployment{
			EditionNumber: d.Edition, Number: d.Number, Participants: resolveKeys(ids, d.Participants),
		})
		if err != nil {
			return summary, fmt.Errorf("deployment of %s for %d/%d: %w", d.Manager, d.Edition, d.Number, err)
		}
		summary.Deployments++
	}
	log.Info(ctx, "squads deployed", logger.Int("count", summary.Deployments))

	for _, e := range f.Episodes {
		if err := client.LoadResults(ctx, e, e.Results.resolve(ids)); err != nil {
			return summary, fmt.Errorf("results for %s: %w", e.Key(), err)
		}
		rep, err := client.Recompute(ctx, e)
		if err != nil {
			return summary, fmt.Errorf("recompute %s: %w", e.Key(), err)
		}
		summary.Recomputes++
		summary.Flagged = append(summary.Flagged, rep.Flagged...)
		if len(rep.Failures) > 0 {
			return summary, fmt.Errorf("recompute %s: %d squads failed, first: %s", e.Key(), len(rep.Failures), rep.Failures[0].Error)
		}
		log.Info(ctx, "episode scored",
			logger.String("episode", e.Key().String()),
			logger.Int("squads", rep.Squads),
			logger.Int("flagged", len(rep.Flagged)),
		)
	}

	standings, err := client.Leaderboard(ctx, 0)
	if err != nil {
		return summary, fmt.Errorf("leaderboard: %w", err)
	}
	summary.Standings = standings
	summary.Duration = time.Since(summary.StartTime)

	if cfg.Verify {
		if err := verify(f.Expected, standings); err != nil {
			log.Error(ctx, "leaderboard does not match the fixture", logger.Error(err))
			return summary, err
		}
		log.Info(ctx, "leaderboard verified", logger.Int("managers", len(f.Expected)))
	}
	return summary, nil
}

func resolveKeys(ids map[string]string, keys []string) []string {
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = ids[key]
	}
	return out
}

// createCompetitors creates competitors concurrently and maps fixture keys
// to the ids the server assigned.
func createCompetitors(ctx context.Context, client *Client, cfg *Config, list []FixtureCompetitor) (map[string]string, error) {
	workers := cfg.Workers
	if workers < 1 {
		workers = defaultWorkers
	}

	var mu sync.Mutex
	ids := make(map[string]string, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, c := range list {
		g.Go(func() error {
			id, err := client.SaveParticipant(gctx, c)
			if err != nil {
				return fmt.Errorf("competitor %s: %w", c.Key, err)
			}
			mu.Lock()
			ids[c.Key] = id
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}
