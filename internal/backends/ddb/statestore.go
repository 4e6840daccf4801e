package ddb

import (
	"commitlens/internal/state"
	"commitlens/internal/types"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// snapshotItem is the single item holding a cache snapshot.
// Blob is the encoded state; Entries and UpdatedAt are informational.
type snapshotItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Blob      []byte `dynamodbav:"blob"`
	Entries   int    `dynamodbav:"entries"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

type StateStore struct {
	table    string
	name     string
	compress bool
	db       *dynamodb.Client
}

// NewStateStore returns a store for the named cache, creating the table if it does not exist.
func NewStateStore(ctx context.Context, table, name string, compress bool, db *dynamodb.Client) (*StateStore, error) {
	if err := createTableIfNotExists(ctx, db, table); err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "ddb table")
	}
	return &StateStore{table: table, name: name, compress: compress, db: db}, nil
}

func (s *StateStore) key() map[string]ddbTypes.AttributeValue {
	return map[string]ddbTypes.AttributeValue{
		"PK": &ddbTypes.AttributeValueMemberS{Value: pkDirectory(s.name)},
		"SK": &ddbTypes.AttributeValueMemberS{Value: skSnapshot()},
	}
}

func (s *StateStore) Load(ctx context.Context) (*types.CacheState, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "ddb get")
	}
	if out.Item == nil {
		return nil, nil
	}
	var item snapshotItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "ddb unmarshal")
	}
	st, err := state.Decode(item.Blob)
	if err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "decode ddb state")
	}
	return st, nil
}

func (s *StateStore) Save(ctx context.Context, st types.CacheState) error {
	b, err := state.Encode(st, s.compress)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(snapshotItem{
		PK:        pkDirectory(s.name),
		SK:        skSnapshot(),
		Blob:      b,
		Entries:   len(st.Employees),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "ddb marshal")
	}
	if _, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}); err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "ddb put")
	}
	return nil
}

// ClearAll removes the snapshot item. Used in tests only.
func (s *StateStore) ClearAll(ctx context.Context) error {
	_, err := s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(),
	})
	return err
}
