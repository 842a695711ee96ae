package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/okian/fantabrigade/internal/seed"
	"github.com/okian/fantabrigade/pkg/logger"
)

// Default configuration constants.
const (
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 5 * time.Minute
	defaultWorkers    = 4
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		fixture = flag.String("fixture", "", "YAML fixture to seed (required)")
		workers = flag.Int("workers", defaultWorkers, "Concurrent requests while creating competitors")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verify  = flag.Bool("verify", true, "Compare the leaderboard with the fixture's expected totals")
		format  = flag.String("log-format", logger.FormatText, "Log format: text or json")
	)
	flag.Parse()

	if *fixture == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := logger.InitWith(os.Stderr, *format); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}

	f, err := seed.LoadFixture(*fixture)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	summary, err := seed.Run(ctx, &seed.Config{
		BaseURL: *baseURL,
		Timeout: *timeout,
		Workers: *workers,
		Verify:  *verify,
	}, f)
	if err != nil {
		os.Stderr.WriteString("seed failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	league := summary.League
	if league == "" {
		league = "default"
	}
	fmt.Printf("seeded %d competitors, %d brigades, %d episodes, %d deployments into league %s in %s\n",
		summary.Competitors, summary.Brigades, summary.Episodes, summary.Deployments, league,
		summary.Duration.Round(time.Millisecond))
	for _, s := range summary.Standings {
		fmt.Printf("%3d. %-20s %6d pts (%d episodes)\n", s.Rank, s.ManagerID, s.Points, s.Episodes)
	}
}
