package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// dynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type dynamoAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// SubscriptionItem is one section's row in the notifications table.
// DynamoDB drops a string set once its last member is deleted, so a fully
// pruned section has neither set attribute.
type SubscriptionItem struct {
	SectionCode  string   `dynamodbav:"sectionCode"`
	CourseTitle  string   `dynamodbav:"courseTitle"`
	PhoneNumbers []string `dynamodbav:"phoneNumbers,stringset,omitempty"`
	Emails       []string `dynamodbav:"emails,stringset,omitempty"`
}

// DynamoStore keeps subscriptions in a DynamoDB table keyed by section code.
// Codes are matched canonically; Prune writes back to the key the row was
// read under.
type DynamoStore struct {
	client    dynamoAPI
	tableName string

	mu   sync.Mutex
	keys map[domain.Code]string
}

// NewDynamoStore creates a store for tableName using the default AWS
// credential chain, or the shared profile when one is set.
func NewDynamoStore(ctx context.Context, tableName, region, profile string) (*DynamoStore, error) {
	var cfg aws.Config
	var err error

	if profile != "" {
		cfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return newDynamoStore(dynamodb.NewFromConfig(cfg), tableName), nil
}

func newDynamoStore(client dynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, keys: make(map[domain.Code]string)}
}

// FetchActive scans the table for sections with at least one recipient.
func (s *DynamoStore) FetchActive(ctx context.Context) (map[domain.Code]domain.Subscription, error) {
	subs := make(map[domain.Code]domain.Subscription)
	keys := make(map[domain.Code]string)

	input := &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("attribute_exists(phoneNumbers) OR attribute_exists(emails)"),
	}
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", s.tableName, err)
		}

		var items []SubscriptionItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshaling subscriptions: %w", err)
		}
		for _, item := range items {
			if code, ok := addSubscription(subs, item.SectionCode, item.CourseTitle, item.PhoneNumbers, item.Emails); ok {
				keys[code] = item.SectionCode
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
	return subs, nil
}

// Prune deletes recipients from the section's sets. Missing sections and
// recipients are ignored.
func (s *DynamoStore) Prune(ctx context.Context, code domain.Code, recipients []domain.Recipient) error {
	phones, emails := domain.SplitRecipients(recipients)
	if len(phones) == 0 && len(emails) == 0 {
		return nil
	}

	var clauses []string
	values := map[string]types.AttributeValue{}
	if len(phones) > 0 {
		clauses = append(clauses, "phoneNumbers :phones")
		values[":phones"] = &types.AttributeValueMemberSS{Value: phones}
	}
	if len(emails) > 0 {
		clauses = append(clauses, "emails :emails")
		values[":emails"] = &types.AttributeValueMemberSS{Value: emails}
	}
	s.mu.Lock()
	key, ok := s.keys[code]
	s.mu.Unlock()
	if !ok {
		key = code.String()
	}

	expr := "DELETE " + clauses[0]
	if len(clauses) > 1 {
		expr += ", " + clauses[1]
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"sectionCode": &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(sectionCode)"),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var missing *types.ConditionalCheckFailedException
		if errors.As(err, &missing) {
			logger.Debug("storage: prune on missing section", "code", code.String())
			return nil
		}
		return fmt.Errorf("pruning %s: %w", code, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources.
func (s *DynamoStore) Close() error { return nil }
