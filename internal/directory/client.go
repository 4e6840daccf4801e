// Package directory talks to the employee directory (HiBob) API. It fetches the whole roster in
// one call and resolves department and title identifiers through the named-list catalogs.
// The client is stateless: credentials and field expressions are read from the config store on
// every fetch, so edits to the config document apply to the next refresh.
package directory

import (
	"bytes"
	"commitlens/internal/config"
	"commitlens/internal/ports"
	"commitlens/internal/types"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	ListTitle      = "title"
	ListDepartment = "department"

	defaultTimeout   = 60 * time.Second
	maxResponseBytes = 64 << 20
)

// sectionReader is implemented by config stores that expose nested string objects.
type sectionReader interface {
	Strings(key string) map[string]string
}

type Client struct {
	settings    ports.ConfigStore
	http        *http.Client
	tokenWarned atomic.Bool
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(settings ports.ConfigStore, opts ...Option) *Client {
	c := &Client{
		settings: settings,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchAll returns the complete roster keyed by email as delivered upstream.
// Catalog failures only degrade team/title to raw identifiers. Any roster failure yields an
// empty map and an error; callers must not read an empty map as "no employees".
func (c *Client) FetchAll(ctx context.Context) (map[string]types.EmployeeRecord, error) {
	out := map[string]types.EmployeeRecord{}
	if _, _, err := c.credentials(); err != nil {
		return out, err
	}

	titles, err := c.FetchTitleMappings(ctx)
	if err != nil {
		log.WithError(err).Warn("title catalog unavailable, using raw title ids")
	}
	departments, err := c.FetchDepartmentMappings(ctx)
	if err != nil {
		log.WithError(err).Warn("department catalog unavailable, using raw department ids")
	}

	roster, err := c.searchPeople(ctx)
	if err != nil {
		log.WithError(err).Error("employee roster fetch failed")
		return out, err
	}

	fields := DefaultFields()
	if sr, ok := c.settings.(sectionReader); ok {
		fields = fields.With(sr.Strings(config.KeyHiBobFields))
	}
	filter := c.settings.GetOr(config.KeyHiBobFilter, "")

	skipped := 0
	for _, raw := range roster {
		if !Matches(filter, raw) {
			skipped++
			continue
		}
		rec, err := buildRecord(raw, fields, titles, departments)
		if err != nil {
			return map[string]types.EmployeeRecord{}, types.Err(types.ErrUpstream, err, "field expression")
		}
		if strings.TrimSpace(rec.Email) == "" {
			skipped++
			continue
		}
		out[rec.Email] = rec
	}
	log.WithFields(log.Fields{
		"employees": len(out),
		"skipped":   skipped,
	}).Info("fetched employee roster")
	return out, nil
}

// FetchTitleMappings returns the title catalog as id -> name.
func (c *Client) FetchTitleMappings(ctx context.Context) (map[string]string, error) {
	return c.fetchNamedList(ctx, ListTitle)
}

// FetchDepartmentMappings returns the department catalog as id -> name.
func (c *Client) FetchDepartmentMappings(ctx context.Context) (map[string]string, error) {
	return c.fetchNamedList(ctx, ListDepartment)
}

func buildRecord(raw map[string]any, f Fields, titles, departments map[string]string) (types.EmployeeRecord, error) {
	var rec types.EmployeeRecord
	var deptID, titleID string
	for _, p := range []struct {
		expr string
		dst  *string
	}{
		{f.Email, &rec.Email},
		{f.DisplayName, &rec.DisplayName},
		{f.Department, &deptID},
		{f.Title, &titleID},
		{f.Manager, &rec.Manager},
		{f.Site, &rec.SiteID},
		{f.Team, &rec.TeamID},
	} {
		v, err := EvalString(p.expr, raw)
		if err != nil {
			return types.EmployeeRecord{}, err
		}
		*p.dst = strings.TrimSpace(v)
	}
	rec.DepartmentID = deptID
	rec.TitleID = titleID
	rec.Team = resolve(departments, deptID)
	rec.Title = resolve(titles, titleID)
	return rec, nil
}

func resolve(catalog map[string]string, id string) string {
	if name, ok := catalog[id]; ok && name != "" {
		return name
	}
	return id
}

// credentials returns the base URL and Authorization header value.
func (c *Client) credentials() (string, string, error) {
	token := strings.TrimSpace(c.settings.GetOr(config.KeyHiBobToken, ""))
	if config.IsPlaceholder(token) {
		if c.tokenWarned.CompareAndSwap(false, true) {
			log.Warnf("directory token is not configured; set %s in the config file", config.KeyHiBobToken)
		}
		return "", "", types.ErrMissingToken
	}
	c.tokenWarned.Store(false)
	base := strings.TrimRight(c.settings.GetOr(config.KeyHiBobURL, config.DefaultHiBobURL), "/")
	return base, "Basic " + basicToken(token), nil
}

// basicToken accepts either "user:secret" or an already base64-encoded credential.
func basicToken(token string) string {
	if strings.Contains(token, ":") {
		return base64.StdEncoding.EncodeToString([]byte(token))
	}
	return token
}

type namedList struct {
	Name   string          `json:"name"`
	Values []namedListItem `json:"values"`
}

type namedListItem struct {
	ID       flexID          `json:"id"`
	Name     string          `json:"name"`
	Children []namedListItem `json:"children"`
}

// flexID accepts ids sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexID(s)
	return nil
}

func (c *Client) fetchNamedList(ctx context.Context, listType string) (map[string]string, error) {
	out := map[string]string{}
	base, auth, err := c.credentials()
	if err != nil {
		return out, err
	}
	u := fmt.Sprintf("%s/company/named-lists/%s?includeArchived=false", base, url.PathEscape(listType))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/json")

	var nl namedList
	if err := c.do(req, &nl); err != nil {
		return out, err
	}
	flatten(nl.Values, out)
	return out, nil
}

func flatten(items []namedListItem, out map[string]string) {
	for _, it := range items {
		if it.ID != "" {
			out[string(it.ID)] = it.Name
		}
		flatten(it.Children, out)
	}
}

type searchRequest struct {
	ShowInactive bool   `json:"showInactive"`
	Email        string `json:"email,omitempty"`
}

type searchResponse struct {
	Employees []map[string]any `json:"employees"`
}

// searchPeople issues the bulk roster search. No paging parameters are sent; the upstream returns
// the full set in one response.
func (c *Client) searchPeople(ctx context.Context) ([]map[string]any, error) {
	base, auth, err := c.credentials()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(searchRequest{ShowInactive: false})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/people/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	var resp searchResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Employees, nil
}

func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return types.Err(types.ErrUpstream, err, "%s %s", req.Method, req.URL.Path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return types.Err(types.ErrUpstream, err, "read %s", req.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Err(types.ErrUpstream, nil, "%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, snippet(b))
	}
	if err := json.Unmarshal(b, v); err != nil {
		return types.Err(types.ErrUpstream, err, "decode %s", req.URL.Path)
	}
	return nil
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
