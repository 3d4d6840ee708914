package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prefill/application/ports"
	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
	pkgerrors "prefill/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	entityTypeSnapshot = "MAPPING_SNAPSHOT"
	snapshotSK         = "SNAPSHOT"
)

// API is the subset of the DynamoDB client the mapping store uses
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// MappingStore implements ports.MappingStore on a single DynamoDB table
type MappingStore struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewMappingStore creates a new MappingStore
func NewMappingStore(client API, tableName string, logger *zap.Logger) *MappingStore {
	return &MappingStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// snapshotItem represents the DynamoDB item structure for a mapping snapshot
type snapshotItem struct {
	PK           string        `dynamodbav:"PK"`
	SK           string        `dynamodbav:"SK"`
	GSI1PK       string        `dynamodbav:"GSI1PK"` // For lookups by blueprint
	GSI1SK       string        `dynamodbav:"GSI1SK"`
	EntityType   string        `dynamodbav:"EntityType"`
	SessionID    string        `dynamodbav:"SessionID"`
	TenantID     string        `dynamodbav:"TenantID"`
	BlueprintID  string        `dynamodbav:"BlueprintID"`
	Version      int           `dynamodbav:"Version"`
	Checksum     string        `dynamodbav:"Checksum"`
	Mappings     []mappingItem `dynamodbav:"Mappings"`
	MappingCount int           `dynamodbav:"MappingCount"`
	SavedAt      string        `dynamodbav:"SavedAt"`
}

type mappingItem struct {
	FieldNode   string `dynamodbav:"FieldNode"`
	FieldKey    string `dynamodbav:"FieldKey"`
	TargetNode  string `dynamodbav:"TargetNode"`
	TargetField string `dynamodbav:"TargetField"`
}

func sessionPK(sessionID string) string {
	return fmt.Sprintf("SESSION#%s", sessionID)
}

func snapshotKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
		"SK": &types.AttributeValueMemberS{Value: snapshotSK},
	}
}

func toItem(s ports.MappingSnapshot) snapshotItem {
	mappings := make([]mappingItem, 0, len(s.Mappings))
	for _, m := range s.Mappings {
		mappings = append(mappings, mappingItem{
			FieldNode:   m.Field.NodeID().String(),
			FieldKey:    m.Field.FieldKey(),
			TargetNode:  m.Target.NodeID().String(),
			TargetField: m.Target.FieldKey(),
		})
	}
	return snapshotItem{
		PK:           sessionPK(s.SessionID),
		SK:           snapshotSK,
		GSI1PK:       fmt.Sprintf("BLUEPRINT#%s#%s", s.TenantID, s.BlueprintID),
		GSI1SK:       sessionPK(s.SessionID),
		EntityType:   entityTypeSnapshot,
		SessionID:    s.SessionID,
		TenantID:     s.TenantID,
		BlueprintID:  s.BlueprintID,
		Version:      s.Version,
		Checksum:     s.Checksum,
		Mappings:     mappings,
		MappingCount: len(mappings),
		SavedAt:      s.SavedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (i snapshotItem) toSnapshot() (*ports.MappingSnapshot, error) {
	savedAt, err := time.Parse(time.RFC3339Nano, i.SavedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid SavedAt %q: %w", i.SavedAt, err)
	}
	mappings := make([]entities.Mapping, 0, len(i.Mappings))
	for _, m := range i.Mappings {
		mappings = append(mappings, entities.NewMapping(
			valueobjects.NewFieldRef(valueobjects.NodeID(m.FieldNode), m.FieldKey),
			valueobjects.NewFieldRef(valueobjects.NodeID(m.TargetNode), m.TargetField),
		))
	}
	return &ports.MappingSnapshot{
		SessionID:   i.SessionID,
		TenantID:    i.TenantID,
		BlueprintID: i.BlueprintID,
		Version:     i.Version,
		Checksum:    i.Checksum,
		Mappings:    mappings,
		SavedAt:     savedAt,
	}, nil
}

// Save persists a snapshot unless the stored one has the same or a newer version
func (r *MappingStore) Save(ctx context.Context, snapshot ports.MappingSnapshot) error {
	av, err := attributevalue.MarshalMap(toItem(snapshot))
	if err != nil {
		return fmt.Errorf("failed to marshal mapping snapshot: %w", err)
	}

	condition := expression.Name("PK").AttributeNotExists().
		Or(expression.Name("Version").LessThan(expression.Value(snapshot.Version)))
	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return fmt.Errorf("failed to build condition: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			r.logger.Debug("Newer mapping snapshot already stored",
				zap.String("sessionID", snapshot.SessionID),
				zap.Int("version", snapshot.Version),
			)
			return nil
		}
		return pkgerrors.NewDatabaseError("save mapping snapshot", err)
	}

	r.logger.Debug("Saved mapping snapshot",
		zap.String("sessionID", snapshot.SessionID),
		zap.Int("version", snapshot.Version),
		zap.Int("mappings", len(snapshot.Mappings)),
	)
	return nil
}

// Load returns the stored snapshot of a session
func (r *MappingStore) Load(ctx context.Context, sessionID string) (*ports.MappingSnapshot, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            snapshotKey(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("load mapping snapshot", err)
	}
	if len(result.Item) == 0 {
		return nil, pkgerrors.NewNotFoundError("mapping snapshot")
	}

	var item snapshotItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mapping snapshot: %w", err)
	}
	return item.toSnapshot()
}

// Delete removes the snapshot of a session
func (r *MappingStore) Delete(ctx context.Context, sessionID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       snapshotKey(sessionID),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete mapping snapshot", err)
	}
	return nil
}
