package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dentipal/DentiPalCDK-sub004/internal/config"
	"github.com/dentipal/DentiPalCDK-sub004/internal/models"
)

type DynamoApplications struct {
	client              *dynamodb.Client
	table               string
	byProfessionalIndex string
}

func NewDynamoApplications(client *dynamodb.Client, cfg *config.Config) *DynamoApplications {
	return &DynamoApplications{
		client:              client,
		table:               cfg.ApplicationsTable,
		byProfessionalIndex: cfg.ApplicationsByProfessionalIndex,
	}
}

func (s *DynamoApplications) ListScheduled(ctx context.Context) ([]models.ShiftApplication, error) {
	var applications []models.ShiftApplication
	var startKey map[string]ddbtypes.AttributeValue

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.table),
			FilterExpression: aws.String("#st = :scheduled"),
			ExpressionAttributeNames: map[string]string{
				"#st": "applicationStatus",
			},
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":scheduled": &ddbtypes.AttributeValueMemberS{Value: string(models.ApplicationScheduled)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan scheduled applications: %w", err)
		}

		var page []models.ShiftApplication
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal scheduled applications: %w", err)
		}
		applications = append(applications, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return applications, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (s *DynamoApplications) MarkCompleted(ctx context.Context, jobID, professionalUserSub string, at time.Time) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"jobId":               &ddbtypes.AttributeValueMemberS{Value: jobID},
			"professionalUserSub": &ddbtypes.AttributeValueMemberS{Value: professionalUserSub},
		},
		UpdateExpression: aws.String("SET #st = :completed, updatedAt = :now"),
		ExpressionAttributeNames: map[string]string{
			"#st": "applicationStatus",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":completed": &ddbtypes.AttributeValueMemberS{Value: string(models.ApplicationCompleted)},
			":now":       &ddbtypes.AttributeValueMemberS{Value: isoTimestamp(at)},
		},
	})
	if err != nil {
		return fmt.Errorf("mark application completed: %w", err)
	}
	return nil
}

func (s *DynamoApplications) CountCompleted(ctx context.Context, professionalUserSub string) (int, error) {
	count := 0
	var startKey map[string]ddbtypes.AttributeValue

	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			IndexName:              aws.String(s.byProfessionalIndex),
			KeyConditionExpression: aws.String("professionalUserSub = :sub"),
			FilterExpression:       aws.String("#st = :completed"),
			ExpressionAttributeNames: map[string]string{
				"#st": "applicationStatus",
			},
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":sub":       &ddbtypes.AttributeValueMemberS{Value: professionalUserSub},
				":completed": &ddbtypes.AttributeValueMemberS{Value: string(models.ApplicationCompleted)},
			},
			Select:            ddbtypes.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, fmt.Errorf("count completed applications: %w", err)
		}

		count += int(out.Count)

		if len(out.LastEvaluatedKey) == 0 {
			return count, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
