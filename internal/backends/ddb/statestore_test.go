package ddb

import (
	"commitlens/internal/types"
	"context"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/suite"
)

// DDBStateTestSuite needs DynamoDB Local; set TEST_DDB_ENDPOINT (e.g. http://localhost:48000) to run it.
type DDBStateTestSuite struct {
	suite.Suite

	store *StateStore
}

func TestDDBStateTestSuite(t *testing.T) {
	if os.Getenv("TEST_DDB_ENDPOINT") == "" {
		t.Skip("TEST_DDB_ENDPOINT not set")
	}
	suite.Run(t, new(DDBStateTestSuite))
}

func (s *DDBStateTestSuite) SetupTest() {
	ctx := context.Background()
	db := dynamodb.New(dynamodb.Options{
		BaseEndpoint: aws.String(os.Getenv("TEST_DDB_ENDPOINT")),
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("x", "x", ""),
	})
	st, err := NewStateStore(ctx, "commitlens_test", "test", true, db)
	s.Require().NoError(err)
	s.store = st
	s.Require().NoError(s.store.ClearAll(ctx))
}

func (s *DDBStateTestSuite) TestMissingItem() {
	st, err := s.store.Load(context.Background())
	s.NoError(err)
	s.Nil(st)
}

func (s *DDBStateTestSuite) TestSaveLoad() {
	ctx := context.Background()
	at := time.Now().UTC()
	s.Require().NoError(s.store.Save(ctx, types.CacheState{
		Employees: map[string]types.CacheEntry{
			"a@x.com": {EmployeeRecord: types.EmployeeRecord{Email: "a@x.com", Title: "Engineer"}, Timestamp: at},
		},
		LastCacheUpdate: at.Format(time.RFC3339Nano),
	}))

	st, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal("Engineer", st.Employees["a@x.com"].Title)
}

func TestKeys(t *testing.T) {
	if pkDirectory("p") != "DIRECTORY#p" || skSnapshot() != "SNAPSHOT" {
		t.Fatal("unexpected key layout")
	}
}
