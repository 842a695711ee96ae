package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	headerManagerID = "X-Manager-ID"
	headerLeagueID  = "X-League-ID"
)

// Client calls the league HTTP API. League-scoped calls address the league
// set by UseLeague, or the default league.
type Client struct {
	baseURL string
	league  string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// UseLeague scopes later deployments, rosters and leaderboard reads to id.
func (c *Client) UseLeague(id string) {
	c.league = id
}

type brigade struct {
	Participants []string `json:"participants"`
}

type participant struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name"`
	LastName      string `json:"lastName"`
	EditionNumber int    `json:"editionNumber"`
}

type episode struct {
	Number        int  `json:"number"`
	EditionNumber int  `json:"editionNumber"`
	IsOutside     bool `json:"isOutside"`
}

type deployment struct {
	EditionNumber int      `json:"editionNumber"`
	Number        int      `json:"number"`
	Participants  []string `json:"participants"`
}

// RecomputeReport is the subset of the recompute answer the seeder reads.
type RecomputeReport struct {
	Squads    int      `json:"squads"`
	Persisted int      `json:"persisted"`
	Flagged   []string `json:"flagged"`
	Failures  []struct {
		SquadID string `json:"squadId"`
		Stage   string `json:"stage"`
		Error   string `json:"error"`
	} `json:"failures"`
}

// SaveParticipant creates a competitor and returns its id.
func (c *Client) SaveParticipant(ctx context.Context, fc FixtureCompetitor) (string, error) {
	var out participant
	err := c.do(ctx, http.MethodPost, "/participants", "", participant{
		Name: fc.Name, LastName: fc.LastName, EditionNumber: fc.Edition,
	}, &out)
	return out.ID, err
}

// SaveLeague creates or updates a league and returns its id.
func (c *Client) SaveLeague(ctx context.Context, l FixtureLeague) (string, error) {
	var out FixtureLeague
	err := c.do(ctx, http.MethodPost, "/leagues", "", l, &out)
	return out.ID, err
}

// SaveBrigade replaces a manager's roster in the client's league.
func (c *Client) SaveBrigade(ctx context.Context, manager string, participants []string) error {
	return c.do(ctx, http.MethodPost, "/brigades", manager, brigade{Participants: participants}, nil)
}

// SaveEpisode creates or updates an episode.
func (c *Client) SaveEpisode(ctx context.Context, e FixtureEpisode) error {
	return c.do(ctx, http.MethodPost, "/episodes", "", episode{
		Number: e.Number, EditionNumber: e.Edition, IsOutside: e.IsOutside,
	}, nil)
}

// LoadResults uploads results whose lists already hold server ids.
func (c *Client) LoadResults(ctx context.Context, e FixtureEpisode, results FixtureResults) error {
	return c.do(ctx, http.MethodPost, episodePath(e)+"/results", "", results, nil)
}

// Recompute rescores an episode synchronously.
func (c *Client) Recompute(ctx context.Context, e FixtureEpisode) (RecomputeReport, error) {
	var out RecomputeReport
	err := c.do(ctx, http.MethodPost, episodePath(e)+"/recompute", "", nil, &out)
	return out, err
}

// Deploy stores a manager's squad.
func (c *Client) Deploy(ctx context.Context, manager string, d deployment) error {
	return c.do(ctx, http.MethodPost, "/deployments", manager, d, nil)
}

// Leaderboard fetches standings; edition 0 spans all editions.
func (c *Client) Leaderboard(ctx context.Context, edition int) ([]Standing, error) {
	q := url.Values{}
	if edition > 0 {
		q.Set("edition", strconv.Itoa(edition))
	}
	path := "/leaderboard"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []Standing
	err := c.do(ctx, http.MethodGet, path, "", nil, &out)
	return out, err
}

func episodePath(e FixtureEpisode) string {
	return fmt.Sprintf("/episodes/%d/%d", e.Edition, e.Number)
}

// do sends body as JSON and decodes a 2xx answer into out when non-nil.
func (c *Client) do(ctx context.Context, method, path, manager string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if manager != "" {
		req.Header.Set(headerManagerID, manager)
	}
	if c.league != "" {
		req.Header.Set(headerLeagueID, c.league)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return fmt.Errorf("%s %s: %w", method, path, apiErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
