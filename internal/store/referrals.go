package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dentipal/DentiPalCDK-sub004/internal/config"
	"github.com/dentipal/DentiPalCDK-sub004/internal/models"
)

type DynamoReferrals struct {
	client          *dynamodb.Client
	table           string
	byReferredIndex string
}

func NewDynamoReferrals(client *dynamodb.Client, cfg *config.Config) *DynamoReferrals {
	return &DynamoReferrals{
		client:          client,
		table:           cfg.ReferralsTable,
		byReferredIndex: cfg.ReferralsByReferredIndex,
	}
}

func (s *DynamoReferrals) FindByReferred(ctx context.Context, referredUserSub string) (*models.ReferralRecord, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.byReferredIndex),
		KeyConditionExpression: aws.String("referredUserSub = :sub"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":sub": &ddbtypes.AttributeValueMemberS{Value: referredUserSub},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query referral record: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, ErrNotFound
	}

	var record models.ReferralRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &record); err != nil {
		return nil, fmt.Errorf("unmarshal referral record: %w", err)
	}
	return &record, nil
}

// MarkBonusDue is the only guarded write in the pipeline: the condition
// expression rejects the update if a concurrent run already settled the
// referral.
func (s *DynamoReferrals) MarkBonusDue(ctx context.Context, referralID string, at time.Time) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"referralId": &ddbtypes.AttributeValueMemberS{Value: referralID},
		},
		UpdateExpression:    aws.String("SET #st = :due, updatedAt = :now"),
		ConditionExpression: aws.String("#st = :signedUp"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":due":      &ddbtypes.AttributeValueMemberS{Value: string(models.ReferralBonusDue)},
			":signedUp": &ddbtypes.AttributeValueMemberS{Value: string(models.ReferralSignedUp)},
			":now":      &ddbtypes.AttributeValueMemberS{Value: isoTimestamp(at)},
		},
	})
	if err != nil {
		var conditionErr *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &conditionErr) {
			return ErrConditionFailed
		}
		return fmt.Errorf("mark referral bonus due: %w", err)
	}
	return nil
}
