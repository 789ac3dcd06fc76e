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

type DynamoJobs struct {
	client        *dynamodb.Client
	table         string
	byClinicIndex string
}

func NewDynamoJobs(client *dynamodb.Client, cfg *config.Config) *DynamoJobs {
	return &DynamoJobs{
		client:        client,
		table:         cfg.JobsTable,
		byClinicIndex: cfg.JobsByClinicIndex,
	}
}

func (s *DynamoJobs) FindByClinicAndJob(ctx context.Context, clinicID, jobID string) (*models.JobPosting, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.byClinicIndex),
		KeyConditionExpression: aws.String("clinicId = :clinic AND jobId = :job"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":clinic": &ddbtypes.AttributeValueMemberS{Value: clinicID},
			":job":    &ddbtypes.AttributeValueMemberS{Value: jobID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query job posting: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, ErrNotFound
	}

	var posting models.JobPosting
	if err := attributevalue.UnmarshalMap(out.Items[0], &posting); err != nil {
		return nil, fmt.Errorf("unmarshal job posting: %w", err)
	}
	return &posting, nil
}

func (s *DynamoJobs) Deactivate(ctx context.Context, clinicUserSub, jobID string, at time.Time) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"clinicUserSub": &ddbtypes.AttributeValueMemberS{Value: clinicUserSub},
			"jobId":         &ddbtypes.AttributeValueMemberS{Value: jobID},
		},
		UpdateExpression: aws.String("SET #st = :inactive, updatedAt = :now"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":inactive": &ddbtypes.AttributeValueMemberS{Value: string(models.JobInactive)},
			":now":      &ddbtypes.AttributeValueMemberS{Value: isoTimestamp(at)},
		},
	})
	if err != nil {
		return fmt.Errorf("deactivate job posting: %w", err)
	}
	return nil
}
