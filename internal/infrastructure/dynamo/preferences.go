package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-push-notify/internal/domain"
)

// PreferenceRepo stores per-owner notification settings.
type PreferenceRepo struct {
	client    API
	tableName string
}

func NewPreferenceRepo(client API, tableName string) *PreferenceRepo {
	return &PreferenceRepo{client: client, tableName: tableName}
}

func (r *PreferenceRepo) Get(ctx context.Context, ownerID string) (*domain.Preferences, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldOwnerID, ownerID),
	})
	if err != nil {
		return nil, &domain.RegistryError{Op: "get_preferences", Err: err}
	}
	if out.Item == nil {
		return nil, fmt.Errorf("preferences not found: %w", domain.ErrNotFound)
	}
	var p domain.Preferences
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, &domain.RegistryError{Op: "get_preferences", Err: err}
	}
	return &p, nil
}

func (r *PreferenceRepo) Put(ctx context.Context, p *domain.Preferences) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return &domain.RegistryError{Op: "put_preferences", Err: err}
	}
	return nil
}

// EnsureDefault writes p only when the owner has no settings yet.
func (r *PreferenceRepo) EnsureDefault(ctx context.Context, p *domain.Preferences) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(owner_id)"),
	})
	if err != nil && !isConditionFailed(err) {
		return &domain.RegistryError{Op: "ensure_preferences", Err: err}
	}
	return nil
}

// OwnersWithPushEnabled scans for owners with push on, then applies the
// category opt-out in memory.
func (r *PreferenceRepo) OwnersWithPushEnabled(ctx context.Context, category string) ([]string, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("#pe = :t"),
		ExpressionAttributeNames: map[string]string{
			"#pe": fieldPushEnabled,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	var owners []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, &domain.RegistryError{Op: "list_audience", Err: err}
		}
		var prefs []domain.Preferences
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &prefs); err != nil {
			return nil, &domain.RegistryError{Op: "list_audience", Err: err}
		}
		for _, pref := range prefs {
			if pref.Allows(category) {
				owners = append(owners, pref.OwnerID)
			}
		}
	}
	return owners, nil
}
