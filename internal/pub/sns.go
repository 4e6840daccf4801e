package pub

import (
	"commitlens/internal/ports"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNS publishes encoded events to an SNS topic.
type SNS struct{ cli *sns.Client }

var _ ports.Publisher = (*SNS)(nil)

func NewSNS(c *sns.Client) *SNS { return &SNS{cli: c} }

func (s *SNS) PublishRaw(ctx context.Context, arn string, payload []byte) error {
	_, err := s.cli.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(arn),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"content-type": {DataType: aws.String("String"), StringValue: aws.String("application/json")},
			"event-type":   {DataType: aws.String("String"), StringValue: aws.String(EventDirectoryRefresh)},
		},
	})
	return err
}
