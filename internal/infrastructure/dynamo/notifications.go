package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-push-notify/internal/domain"
)

// logRetention is how long a delivery log lives before the table TTL reaps it.
const logRetention = 90 * 24 * time.Hour

// NotificationRepo stores delivery logs.
type NotificationRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewNotificationRepo(client API, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if n.ExpiresAt == 0 {
		n.ExpiresAt = r.now().Add(logRetention).Unix()
	}
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldNotificationID, notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Finalize records the outcome tallies of a dispatch cycle.
func (r *NotificationRepo) Finalize(ctx context.Context, notificationID string, sent, failed, total int) error {
	return r.update(ctx, notificationID, map[string]interface{}{
		fieldStatus: domain.FinalStatus(sent, failed),
		fieldSent:   sent,
		fieldFailed: failed,
		fieldTotal:  total,
		fieldSentAt: r.now().UTC(),
	})
}

// MarkDelivered increments the receiver-side delivered counter.
func (r *NotificationRepo) MarkDelivered(ctx context.Context, notificationID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldNotificationID, notificationID),
		UpdateExpression:         aws.String("ADD #dc :one"),
		ConditionExpression:      aws.String("attribute_exists(notification_id)"),
		ExpressionAttributeNames: map[string]string{"#dc": fieldDeliveredCount},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	return err
}

// MarkClicked records the action the user took on the notification.
func (r *NotificationRepo) MarkClicked(ctx context.Context, notificationID, action string) error {
	return r.update(ctx, notificationID, map[string]interface{}{
		fieldClickAction: action,
		fieldClickedAt:   r.now().UTC(),
	})
}

func (r *NotificationRepo) update(ctx context.Context, notificationID string, fields map[string]interface{}) error {
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldNotificationID, notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(notification_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	return err
}
