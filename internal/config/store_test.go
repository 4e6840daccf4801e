package config

import (
	"commitlens/internal/types"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite

	dir   string
	path  string
	edits int
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.path = filepath.Join(s.dir, DefaultFileName)
}

// writeExternal simulates another process rewriting the file. The mtime is pushed forward so the
// change is visible even on file systems with coarse timestamps.
func (s *StoreTestSuite) writeExternal(content string) {
	s.Require().NoError(os.WriteFile(s.path, []byte(content), 0o600))
	s.edits++
	future := time.Now().Add(time.Duration(s.edits) * time.Hour)
	s.Require().NoError(os.Chtimes(s.path, future, future))
}

func (s *StoreTestSuite) readDoc() map[string]any {
	b, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	var doc map[string]any
	s.Require().NoError(json.Unmarshal(b, &doc))
	return doc
}

func (s *StoreTestSuite) TestMissingFileWritesTemplate() {
	st := NewStore(s.path)

	v, ok := st.Get(KeyHiBobURL)
	s.True(ok)
	s.Equal(DefaultHiBobURL, v)
	s.Equal(PlaceholderHiBobToken, st.GetOr(KeyHiBobToken, ""))
	s.Len(st.AllMappings(), 2)

	doc := s.readDoc()
	s.Equal(PlaceholderYouTrackToken, doc[KeyYouTrackToken])
	s.Contains(doc, KeyEmailMappings)
}

func (s *StoreTestSuite) TestInvalidJSONFailsSoftly() {
	s.writeExternal(`{"hibobToken": "abc",`)
	st := NewStore(s.path)

	_, ok := st.Get(KeyHiBobToken)
	s.False(ok)
	s.Equal("fallback", st.GetOr(KeyHiBobToken, "fallback"))
	s.Empty(st.AllMappings())
	s.Equal("a@x.com", st.MapEmail("a@x.com"))
	s.True(errors.Is(st.LastError(), types.ErrConfig))
}

func (s *StoreTestSuite) TestBrokenRewriteKeepsPreviousValues() {
	s.writeExternal(`{"hibobToken": "abc", "emailMappings": {"p@gmail.com": "c@co.com"}}`)
	st := NewStore(s.path)
	s.Equal("c@co.com", st.MapEmail("p@gmail.com"))

	s.writeExternal(`not json at all`)
	s.Equal("c@co.com", st.MapEmail("p@gmail.com"))
	s.Equal("abc", st.GetOr(KeyHiBobToken, ""))
	s.Error(st.LastError())
}

func (s *StoreTestSuite) TestMapEmailIsSingleHop() {
	s.writeExternal(`{"emailMappings": {"a@x.com": "b@x.com", "b@x.com": "c@x.com"}}`)
	st := NewStore(s.path)

	s.Equal("b@x.com", st.MapEmail("a@x.com"))
	s.Equal("c@x.com", st.MapEmail(st.MapEmail("a@x.com")))
	s.Equal("nobody@x.com", st.MapEmail("nobody@x.com"))
}

func (s *StoreTestSuite) TestMapEmailIgnoresCase() {
	s.writeExternal(`{"emailMappings": {"John.Doe@Gmail.com": "john.doe@company.com"}}`)
	st := NewStore(s.path)

	s.Equal("john.doe@company.com", st.MapEmail("john.doe@gmail.com"))
	s.Equal("john.doe@company.com", st.MapEmail("  JOHN.DOE@GMAIL.COM "))
	// Unmapped input comes back exactly as given.
	s.Equal("Someone@Else.com", st.MapEmail("Someone@Else.com"))
}

func (s *StoreTestSuite) TestAddAndRemoveMapping() {
	s.writeExternal(`{}`)
	st := NewStore(s.path)

	s.NoError(st.AddMapping("p@gmail.com", "c@co.com", true))
	s.Equal("c@co.com", st.MapEmail("p@gmail.com"))
	mappings := s.readDoc()[KeyEmailMappings].(map[string]any)
	s.Equal("c@co.com", mappings["p@gmail.com"])

	// Same key in another case replaces instead of duplicating.
	s.NoError(st.AddMapping("P@Gmail.com", "other@co.com", true))
	s.Equal(map[string]string{"P@Gmail.com": "other@co.com"}, st.AllMappings())

	removed, err := st.RemoveMapping("p@gmail.com", true)
	s.NoError(err)
	s.True(removed)
	s.Empty(st.AllMappings())

	removed, err = st.RemoveMapping("p@gmail.com", true)
	s.NoError(err)
	s.False(removed)
}

func (s *StoreTestSuite) TestAddMappingRejectsBlank() {
	st := NewStore(s.path)
	err := st.AddMapping(" ", "c@co.com", true)
	s.True(errors.Is(err, types.ErrConfig))
}

func (s *StoreTestSuite) TestUpdateWithoutPersistStaysInMemory() {
	s.writeExternal(`{"hibobToken": "old"}`)
	st := NewStore(s.path)

	s.NoError(st.Update(KeyHiBobToken, "new", false))
	s.Equal("new", st.GetOr(KeyHiBobToken, ""))
	s.Equal("old", s.readDoc()[KeyHiBobToken])

	s.NoError(st.Update(KeyHiBobToken, "newer", true))
	s.Equal("newer", s.readDoc()[KeyHiBobToken])
}

func (s *StoreTestSuite) TestUpdateRefusesMappingTable() {
	st := NewStore(s.path)
	s.Error(st.Update(KeyEmailMappings, "x", true))
}

func (s *StoreTestSuite) TestUnknownKeysSurviveRewrite() {
	s.writeExternal(`{"hibobToken": "t", "customThing": {"nested": [1, 2]}, "flag": true, "projectId": 9007199254740993, "limit": 1000000, "ratio": 0.25}`)
	st := NewStore(s.path)

	v, ok := st.Get("flag")
	s.True(ok)
	s.Equal("true", v)
	v, _ = st.Get("limit")
	s.Equal("1000000", v)
	v, _ = st.Get("projectId")
	s.Equal("9007199254740993", v)
	v, _ = st.Get("ratio")
	s.Equal("0.25", v)
	_, ok = st.Get("customThing")
	s.False(ok)

	s.NoError(st.AddMapping("a@x.com", "b@y.com", true))
	doc := s.readDoc()
	s.Equal(map[string]any{"nested": []any{float64(1), float64(2)}}, doc["customThing"])
	s.Equal(true, doc["flag"])

	raw, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.Contains(string(raw), `"projectId": 9007199254740993`)
	s.Contains(string(raw), `"limit": 1000000`)
	v, _ = st.Get("projectId")
	s.Equal("9007199254740993", v)
}

func (s *StoreTestSuite) TestExternalEditIsPickedUp() {
	s.writeExternal(`{}`)
	st := NewStore(s.path)
	s.NoError(st.AddMapping("a@x.com", "b@y.com", true))
	s.Equal("b@y.com", st.MapEmail("a@x.com"))

	s.writeExternal(`{"hibobToken": "rotated", "emailMappings": {"a@x.com": "z@y.com"}}`)

	s.Equal("z@y.com", st.MapEmail("a@x.com"))
	s.Equal("rotated", st.GetOr(KeyHiBobToken, ""))
}

func (s *StoreTestSuite) TestWriteMergesExternalEditFirst() {
	s.writeExternal(`{"emailMappings": {"a@x.com": "b@y.com"}}`)
	st := NewStore(s.path)
	s.Equal("b@y.com", st.MapEmail("a@x.com"))

	s.writeExternal(`{"emailMappings": {"a@x.com": "b@y.com", "ext@x.com": "ext@y.com"}}`)
	s.NoError(st.AddMapping("mine@x.com", "mine@y.com", true))

	s.Equal(map[string]string{
		"a@x.com":    "b@y.com",
		"ext@x.com":  "ext@y.com",
		"mine@x.com": "mine@y.com",
	}, st.AllMappings())
}

func (s *StoreTestSuite) TestStringsSection() {
	s.writeExternal(`{"hibobFields": {"manager": "work.manager.name", "bad": 3}}`)
	st := NewStore(s.path)
	s.Equal(map[string]string{"manager": "work.manager.name"}, st.Strings(KeyHiBobFields))
	s.Empty(st.Strings("missing"))
}

func (s *StoreTestSuite) TestSetDirectoryCredentials() {
	s.writeExternal(`{"hibobApiUrl": "https://old"}`)
	st := NewStore(s.path)

	s.NoError(st.SetDirectoryCredentials("tok", ""))
	s.Equal("tok", st.GetOr(KeyHiBobToken, ""))
	s.Equal("https://old", st.GetOr(KeyHiBobURL, ""))

	s.NoError(st.SetDirectoryCredentials("tok2", "https://new"))
	doc := s.readDoc()
	s.Equal("tok2", doc[KeyHiBobToken])
	s.Equal("https://new", doc[KeyHiBobURL])
}

func (s *StoreTestSuite) TestWriteFailureIsReported() {
	blocker := filepath.Join(s.dir, "blocker")
	s.Require().NoError(os.WriteFile(blocker, []byte("x"), 0o600))
	st := NewStore(filepath.Join(blocker, DefaultFileName))

	err := st.AddMapping("a@x.com", "b@y.com", true)
	s.True(errors.Is(err, types.ErrPersist))
	// In-memory state is still correct.
	s.Equal("b@y.com", st.MapEmail("a@x.com"))
}

func (s *StoreTestSuite) TestConcurrentReadersAndWriters() {
	s.writeExternal(`{}`)
	st := NewStore(s.path)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			from := fmt.Sprintf("user%d@gmail.com", i)
			s.NoError(st.AddMapping(from, fmt.Sprintf("user%d@co.com", i), true))
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				out := st.MapEmail("user0@gmail.com")
				s.True(out == "user0@gmail.com" || out == "user0@co.com")
			}
		}()
	}
	wg.Wait()

	s.Len(st.AllMappings(), 8)
	for from, to := range s.readDoc()[KeyEmailMappings].(map[string]any) {
		s.True(strings.HasSuffix(to.(string), "@co.com"), from)
	}
}
