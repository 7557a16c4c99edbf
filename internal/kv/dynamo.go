package kv

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/awsconf"
)

// dynamoItem is the single item shape stored in the table. The table's
// partition key is the string attribute "pk"; there is no sort key.
type dynamoItem struct {
	Key   string `dynamodbav:"pk"`
	Value []byte `dynamodbav:"value"`
}

// Dynamo implements Store on a DynamoDB table.
type Dynamo struct {
	client *dynamodb.Client
	table  string
}

// OpenDynamo builds a client from cfg and checks that the table exists.
func OpenDynamo(ctx context.Context, cfg DynamoConfig) (*Dynamo, error) {
	awsCfg, err := awsconf.Load(ctx, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("kv: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(cfg.Table),
	}); err != nil {
		return nil, fmt.Errorf("kv: describe table %s: %w", cfg.Table, err)
	}
	return &Dynamo{client: client, table: cfg.Table}, nil
}

func (d *Dynamo) key(k string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: k},
	}
}

// Get returns the value stored at key using a consistent read.
func (d *Dynamo) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            d.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("kv: get %s: %w", key, err)
	}
	if resp.Item == nil {
		return nil, apperr.ErrNotFound
	}
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(resp.Item, &item); err != nil {
		return nil, fmt.Errorf("kv: unmarshal %s: %w", key, err)
	}
	return item.Value, nil
}

// Put stores value at key.
func (d *Dynamo) Put(ctx context.Context, key string, value []byte) error {
	av, err := attributevalue.MarshalMap(dynamoItem{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("kv: marshal %s: %w", key, err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. DeleteItem on a missing key succeeds.
func (d *Dynamo) Delete(ctx context.Context, key string) error {
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key:       d.key(key),
	}); err != nil {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}
	return nil
}

// Keys scans the table for keys starting with prefix.
func (d *Dynamo) Keys(ctx context.Context, prefix string) ([]string, error) {
	input := &dynamodb.ScanInput{
		TableName:            aws.String(d.table),
		ProjectionExpression: aws.String("pk"),
		ConsistentRead:       aws.Bool(true),
	}
	if prefix != "" {
		input.FilterExpression = aws.String("begins_with(pk, :p)")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: prefix},
		}
	}

	out := []string{}
	p := dynamodb.NewScanPaginator(d.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("kv: scan: %w", err)
		}
		for _, raw := range page.Items {
			var item dynamoItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("kv: unmarshal scan item: %w", err)
			}
			out = append(out, item.Key)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op; the SDK client holds no connections that need closing.
func (d *Dynamo) Close() error {
	return nil
}
