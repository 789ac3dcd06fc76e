package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dentipal/DentiPalCDK-sub004/internal/config"
)

type DynamoProfiles struct {
	client *dynamodb.Client
	table  string
}

func NewDynamoProfiles(client *dynamodb.Client, cfg *config.Config) *DynamoProfiles {
	return &DynamoProfiles{
		client: client,
		table:  cfg.ProfilesTable,
	}
}

// CreditBonus relies on DynamoDB ADD semantics: a missing bonusBalance
// attribute starts from zero.
func (s *DynamoProfiles) CreditBonus(ctx context.Context, userSub string, amount int) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"userSub": &ddbtypes.AttributeValueMemberS{Value: userSub},
		},
		UpdateExpression: aws.String("ADD bonusBalance :amount"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":amount": &ddbtypes.AttributeValueMemberN{Value: strconv.Itoa(amount)},
		},
	})
	if err != nil {
		return fmt.Errorf("credit referral bonus: %w", err)
	}
	return nil
}
