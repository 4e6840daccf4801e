package directory

import (
	"commitlens/internal/config"
	"commitlens/internal/types"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"
)

type fakeSettings struct {
	values   map[string]string
	sections map[string]map[string]string
}

func (f *fakeSettings) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *fakeSettings) GetOr(key, def string) string {
	if v, ok := f.values[key]; ok && v != "" {
		return v
	}
	return def
}

func (f *fakeSettings) MapEmail(email string) string { return email }

func (f *fakeSettings) Strings(key string) map[string]string { return f.sections[key] }

type ClientTestSuite struct {
	suite.Suite

	srv         *httptest.Server
	settings    *fakeSettings
	client      *Client
	titleStatus int
	rosterCode  int
	rosterBody  string
	searches    atomic.Int32
	lastAuth    atomic.Value
	lastBody    atomic.Value
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

const rosterJSON = `{"employees": [
	{"email": "Alice@co.com", "displayName": "Alice A", "work": {"department": "d1", "title": 11, "reportsTo": {"displayName": "Boss"}, "site": "Berlin", "customColumns": {"team": "core"}}},
	{"email": "bob@co.com", "fullName": "Bob B", "work": {"department": "unknown-dept", "title": "raw title"}},
	{"email": "  ", "displayName": "Blank"},
	{"displayName": "No Email"}
]}`

func (s *ClientTestSuite) SetupTest() {
	s.titleStatus = http.StatusOK
	s.rosterCode = http.StatusOK
	s.rosterBody = rosterJSON
	s.searches.Store(0)

	mux := http.NewServeMux()
	mux.HandleFunc("/company/named-lists/title", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("false", r.URL.Query().Get("includeArchived"))
		if s.titleStatus != http.StatusOK {
			w.WriteHeader(s.titleStatus)
			return
		}
		_, _ = io.WriteString(w, `{"name": "title", "values": [{"id": 11, "name": "Engineer"}]}`)
	})
	mux.HandleFunc("/company/named-lists/department", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"name": "department", "values": [
			{"id": "d0", "name": "R&D", "children": [{"id": "d1", "name": "Platform"}]}
		]}`)
	})
	mux.HandleFunc("/people/search", func(w http.ResponseWriter, r *http.Request) {
		s.searches.Add(1)
		s.Equal(http.MethodPost, r.Method)
		s.lastAuth.Store(r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		s.lastBody.Store(string(b))
		w.WriteHeader(s.rosterCode)
		_, _ = io.WriteString(w, s.rosterBody)
	})
	s.srv = httptest.NewServer(mux)

	s.settings = &fakeSettings{values: map[string]string{
		config.KeyHiBobToken: "svc-user:secret",
		config.KeyHiBobURL:   s.srv.URL + "/",
	}}
	s.client = NewClient(s.settings, WithHTTPClient(s.srv.Client()))
}

func (s *ClientTestSuite) TearDownTest() {
	s.srv.Close()
}

func (s *ClientTestSuite) TestFetchAllResolvesCatalogs() {
	all, err := s.client.FetchAll(context.Background())
	s.Require().NoError(err)
	s.Len(all, 2)

	alice := all["Alice@co.com"]
	s.Equal("Alice A", alice.DisplayName)
	s.Equal("Platform", alice.Team)
	s.Equal("d1", alice.DepartmentID)
	s.Equal("Engineer", alice.Title)
	s.Equal("11", alice.TitleID)
	s.Equal("Boss", alice.Manager)
	s.Equal("Berlin", alice.SiteID)
	s.Equal("core", alice.TeamID)

	bob := all["bob@co.com"]
	s.Equal("Bob B", bob.DisplayName)
	s.Equal("unknown-dept", bob.Team)
	s.Equal("raw title", bob.Title)
	s.Empty(bob.Manager)

	s.Equal("Basic c3ZjLXVzZXI6c2VjcmV0", s.lastAuth.Load())
	var body map[string]any
	s.Require().NoError(json.Unmarshal([]byte(s.lastBody.Load().(string)), &body))
	s.Equal(map[string]any{"showInactive": false}, body)
}

func (s *ClientTestSuite) TestCatalogFailureDegradesToRawIDs() {
	s.titleStatus = http.StatusInternalServerError

	all, err := s.client.FetchAll(context.Background())
	s.Require().NoError(err)
	s.Equal("11", all["Alice@co.com"].Title)
	s.Equal("Platform", all["Alice@co.com"].Team)
}

func (s *ClientTestSuite) TestRosterHTTPErrorYieldsEmpty() {
	s.rosterCode = http.StatusUnauthorized
	s.rosterBody = `{"error": "bad token"}`

	all, err := s.client.FetchAll(context.Background())
	s.True(errors.Is(err, types.ErrUpstream))
	s.NotNil(all)
	s.Empty(all)
}

func (s *ClientTestSuite) TestMalformedRosterYieldsEmpty() {
	s.rosterBody = `{"employees": [`

	all, err := s.client.FetchAll(context.Background())
	s.True(errors.Is(err, types.ErrUpstream))
	s.Empty(all)
}

func (s *ClientTestSuite) TestMissingTokenSkipsNetwork() {
	s.settings.values[config.KeyHiBobToken] = config.PlaceholderHiBobToken

	all, err := s.client.FetchAll(context.Background())
	s.True(errors.Is(err, types.ErrMissingToken))
	s.Empty(all)
	s.Zero(s.searches.Load())
}

func (s *ClientTestSuite) TestFieldOverridesAndFilter() {
	s.settings.sections = map[string]map[string]string{
		config.KeyHiBobFields: {"displayName": "work.site || 'n/a'"},
	}
	s.settings.values[config.KeyHiBobFilter] = "work.department == 'd1'"

	all, err := s.client.FetchAll(context.Background())
	s.Require().NoError(err)
	s.Len(all, 1)
	s.Equal("Berlin", all["Alice@co.com"].DisplayName)
}

func (s *ClientTestSuite) TestInvalidFieldExpressionFails() {
	s.settings.sections = map[string]map[string]string{
		config.KeyHiBobFields: {"manager": "work.[["},
	}

	all, err := s.client.FetchAll(context.Background())
	s.True(errors.Is(err, types.ErrUpstream))
	s.Empty(all)
}

func (s *ClientTestSuite) TestPublicCatalogHelpers() {
	titles, err := s.client.FetchTitleMappings(context.Background())
	s.Require().NoError(err)
	s.Equal(map[string]string{"11": "Engineer"}, titles)

	depts, err := s.client.FetchDepartmentMappings(context.Background())
	s.Require().NoError(err)
	s.Equal(map[string]string{"d0": "R&D", "d1": "Platform"}, depts)
}

func TestBasicToken(t *testing.T) {
	if got := basicToken("already-encoded"); got != "already-encoded" {
		t.Fatalf("got %q", got)
	}
	if got := basicToken("u:p"); got != "dTpw" {
		t.Fatalf("got %q", got)
	}
}
