package runindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DDBIndex implements Index backed by a DynamoDB table, so multiple training
// hosts can publish their retained sets to one registry.
//
// Puts use a conditional write on the epoch sort key: if two managers ever
// share a run ID, the second writer gets ErrDuplicateEpoch instead of
// silently overwriting the first one's record.
//
// Table schema:
//   - Partition key: run_id (string)
//   - Sort key: epoch (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name ckpt-runs \
//	  --attribute-definitions AttributeName=run_id,AttributeType=S AttributeName=epoch,AttributeType=N \
//	  --key-schema AttributeName=run_id,KeyType=HASH AttributeName=epoch,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBIndex struct {
	client    DDBClient
	tableName string
	runID     string
}

// NewDDBIndex creates a DynamoDB-backed run index scoped to runID.
func NewDDBIndex(client DDBClient, tableName, runID string) *DDBIndex {
	return &DDBIndex{
		client:    client,
		tableName: tableName,
		runID:     runID,
	}
}

// PutEntry implements Index.
func (d *DDBIndex) PutEntry(ctx context.Context, e Entry) error {
	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item: map[string]types.AttributeValue{
			"run_id": &types.AttributeValueMemberS{Value: d.runID},
			"epoch":  &types.AttributeValueMemberN{Value: strconv.Itoa(e.Epoch)},
			"score":  &types.AttributeValueMemberN{Value: strconv.FormatFloat(e.Score, 'f', -1, 64)},
			"name":   &types.AttributeValueMemberS{Value: e.Name},
		},
		ConditionExpression: aws.String("attribute_not_exists(epoch)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrDuplicateEpoch
		}
		return fmt.Errorf("runindex: put epoch %d: %w", e.Epoch, err)
	}
	return nil
}

// DeleteEntry implements Index.
func (d *DDBIndex) DeleteEntry(ctx context.Context, epoch int) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"run_id": &types.AttributeValueMemberS{Value: d.runID},
			"epoch":  &types.AttributeValueMemberN{Value: strconv.Itoa(epoch)},
		},
	})
	if err != nil {
		return fmt.Errorf("runindex: delete epoch %d: %w", epoch, err)
	}
	return nil
}

// List implements Index.
func (d *DDBIndex) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	var startKey map[string]types.AttributeValue

	for {
		resp, err := d.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(d.tableName),
			KeyConditionExpression: aws.String("run_id = :run"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":run": &types.AttributeValueMemberS{Value: d.runID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("runindex: query run %s: %w", d.runID, err)
		}

		for _, item := range resp.Items {
			e, err := decodeEntry(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}

		if resp.LastEvaluatedKey == nil {
			break
		}
		startKey = resp.LastEvaluatedKey
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Epoch < entries[j].Epoch })
	return entries, nil
}

func decodeEntry(item map[string]types.AttributeValue) (Entry, error) {
	var e Entry

	epochAttr, ok := item["epoch"].(*types.AttributeValueMemberN)
	if !ok {
		return e, errors.New("runindex: item missing epoch attribute")
	}
	epoch, err := strconv.Atoi(epochAttr.Value)
	if err != nil {
		return e, fmt.Errorf("runindex: invalid epoch attribute: %w", err)
	}
	e.Epoch = epoch

	if scoreAttr, ok := item["score"].(*types.AttributeValueMemberN); ok {
		score, err := strconv.ParseFloat(scoreAttr.Value, 64)
		if err != nil {
			return e, fmt.Errorf("runindex: invalid score attribute: %w", err)
		}
		e.Score = score
	}
	if nameAttr, ok := item["name"].(*types.AttributeValueMemberS); ok {
		e.Name = nameAttr.Value
	}
	return e, nil
}
