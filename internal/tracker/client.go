// Package tracker resolves ticket IDs against the issue tracker (YouTrack REST API).
package tracker

import (
	"commitlens/internal/cache"
	"commitlens/internal/config"
	"commitlens/internal/ports"
	"commitlens/internal/types"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultCacheTTL = 5 * time.Minute

	issueFields      = "idReadable,summary,tags(name)"
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 4 << 20
)

type Client struct {
	settings ports.ConfigStore
	http     *http.Client
	ttl      time.Duration

	// nil values record tickets the tracker does not know.
	tickets *cache.TTL[string, *types.TicketInfo]
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCacheTTL sets how long resolved tickets are reused; zero disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.ttl = d }
}

func NewClient(settings ports.ConfigStore, opts ...Option) *Client {
	c := &Client{
		settings: settings,
		http:     &http.Client{Timeout: defaultTimeout},
		ttl:      DefaultCacheTTL,
		tickets:  cache.NewTTL[string, *types.TicketInfo](),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type issueResponse struct {
	IDReadable string `json:"idReadable"`
	Summary    string `json:"summary"`
	Tags       []struct {
		Name string `json:"name"`
	} `json:"tags"`
}

// FetchTicketInfo returns the ticket, or (nil,nil) if the tracker answers 404.
func (c *Client) FetchTicketInfo(ctx context.Context, ticketID string) (*types.TicketInfo, error) {
	id := strings.TrimSpace(ticketID)
	if id == "" {
		return nil, nil
	}
	if c.ttl > 0 {
		if ti, ok := c.tickets.Get(id); ok {
			return ti, nil
		}
	}

	token := strings.TrimSpace(c.settings.GetOr(config.KeyYouTrackToken, ""))
	if config.IsPlaceholder(token) {
		return nil, types.ErrMissingToken
	}
	base := strings.TrimRight(c.settings.GetOr(config.KeyYouTrackURL, config.DefaultYouTrackURL), "/")
	u := fmt.Sprintf("%s/issues/%s?fields=%s", base, url.PathEscape(id), url.QueryEscape(issueFields))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.Err(types.ErrUpstream, err, "tracker %s", id)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, types.Err(types.ErrUpstream, err, "read tracker %s", id)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		log.WithField("ticket", id).Debug("ticket not found")
		c.remember(id, nil)
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, types.Err(types.ErrUpstream, nil, "tracker %s: status %d", id, resp.StatusCode)
	}

	var ir issueResponse
	if err := json.Unmarshal(b, &ir); err != nil {
		return nil, types.Err(types.ErrUpstream, err, "decode tracker %s", id)
	}
	ti := &types.TicketInfo{ID: ir.IDReadable, Summary: ir.Summary, Tags: make([]string, 0, len(ir.Tags))}
	if ti.ID == "" {
		ti.ID = id
	}
	for _, t := range ir.Tags {
		ti.Tags = append(ti.Tags, t.Name)
	}
	c.remember(id, ti)
	return ti, nil
}

func (c *Client) remember(id string, ti *types.TicketInfo) {
	if c.ttl > 0 {
		c.tickets.Set(id, ti, c.ttl)
	}
}
