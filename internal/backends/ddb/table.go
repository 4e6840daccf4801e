package ddb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	SDirectory = "DIRECTORY"
)

func pkDirectory(name string) string { return fmt.Sprintf("%s#%s", SDirectory, name) }
func skSnapshot() string             { return "SNAPSHOT" }

func createTableIfNotExists(ctx context.Context, client *dynamodb.Client, table string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []ddbTypes.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: ddbTypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: ddbTypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbTypes.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: ddbTypes.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: ddbTypes.KeyTypeRange},
		},
		BillingMode: ddbTypes.BillingModePayPerRequest,
	})
	var re *ddbTypes.ResourceInUseException
	if err != nil && !errors.As(err, &re) {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}
