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
	"golang.org/x/sync/errgroup"
)

const (
	batchWriteLimit   = 25
	batchWriteRetries = 5
	ownerQueryFanout  = 8
)

// SubscriptionRepo is the DynamoDB subscription registry. The table is keyed
// by a hash of (owner, channel, destination), which makes Register an upsert.
type SubscriptionRepo struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewSubscriptionRepo(client API, tableName string) *SubscriptionRepo {
	return &SubscriptionRepo{client: client, tableName: tableName, now: time.Now}
}

// Register upserts the subscription. Re-registering the same destination
// keeps the first id and creation time.
func (r *SubscriptionRepo) Register(ctx context.Context, ownerID string, ct domain.ChannelType, creds domain.Credentials) (*domain.Subscription, error) {
	dest := domain.DestinationKey(ct, creds)
	id := domain.UpsertKey(ownerID, ct, dest)

	credsAV, err := attributevalue.Marshal(creds)
	if err != nil {
		return nil, &domain.RegistryError{Op: "register", Err: fmt.Errorf("marshal credentials: %w", err)}
	}
	nowAV, err := attributevalue.Marshal(r.now().UTC())
	if err != nil {
		return nil, &domain.RegistryError{Op: "register", Err: err}
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey(fieldSubscriptionID, id),
		UpdateExpression: aws.String("SET #o = :o, #c = :c, #cr = :cr, #d = :d, #at = if_not_exists(#at, :now)"),
		ExpressionAttributeNames: map[string]string{
			"#o":  fieldOwnerID,
			"#c":  fieldChannelType,
			"#cr": fieldCredentials,
			"#d":  fieldDestKey,
			"#at": fieldCreatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":o":   &types.AttributeValueMemberS{Value: ownerID},
			":c":   &types.AttributeValueMemberS{Value: string(ct)},
			":cr":  credsAV,
			":d":   &types.AttributeValueMemberS{Value: dest},
			":now": nowAV,
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, &domain.RegistryError{Op: "register", Err: err}
	}
	var sub domain.Subscription
	if err := attributevalue.UnmarshalMap(out.Attributes, &sub); err != nil {
		return nil, &domain.RegistryError{Op: "register", Err: err}
	}
	return &sub, nil
}

func (r *SubscriptionRepo) Get(ctx context.Context, id string) (*domain.Subscription, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldSubscriptionID, id),
	})
	if err != nil {
		return nil, &domain.RegistryError{Op: "get", Err: err}
	}
	if out.Item == nil {
		return nil, fmt.Errorf("subscription not found: %w", domain.ErrNotFound)
	}
	var sub domain.Subscription
	if err := attributevalue.UnmarshalMap(out.Item, &sub); err != nil {
		return nil, &domain.RegistryError{Op: "get", Err: err}
	}
	return &sub, nil
}

// ListForOwners queries the owner_id GSI once per owner, a few owners at a time.
func (r *SubscriptionRepo) ListForOwners(ctx context.Context, ownerIDs []string, filter domain.ListFilter) ([]domain.Subscription, error) {
	perOwner := make([][]domain.Subscription, len(ownerIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ownerQueryFanout)
	for i, ownerID := range ownerIDs {
		g.Go(func() error {
			subs, err := r.listByOwner(gctx, ownerID)
			if err != nil {
				return err
			}
			perOwner[i] = subs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &domain.RegistryError{Op: "list", Err: err}
	}

	var out []domain.Subscription
	for _, subs := range perOwner {
		for _, s := range subs {
			if filter.Matches(s) {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (r *SubscriptionRepo) listByOwner(ctx context.Context, ownerID string) ([]domain.Subscription, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexOwnerID),
		KeyConditionExpression: aws.String("owner_id = :o"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":o": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	var subs []domain.Subscription
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Subscription
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		subs = append(subs, batch...)
	}
	return subs, nil
}

// Delete removes a subscription. Deleting a missing id is not an error.
func (r *SubscriptionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldSubscriptionID, id),
	})
	if err != nil {
		return &domain.RegistryError{Op: "delete", Err: err}
	}
	return nil
}

// DeleteAllForOwner removes every subscription of ownerID in batches of 25.
func (r *SubscriptionRepo) DeleteAllForOwner(ctx context.Context, ownerID string) error {
	subs, err := r.listByOwner(ctx, ownerID)
	if err != nil {
		return &domain.RegistryError{Op: "delete_owner", Err: err}
	}
	for start := 0; start < len(subs); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(subs))
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, s := range subs[start:end] {
			reqs = append(reqs, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: strKey(fieldSubscriptionID, s.ID)},
			})
		}
		if err := r.batchWrite(ctx, reqs); err != nil {
			return &domain.RegistryError{Op: "delete_owner", Err: err}
		}
	}
	return nil
}

// batchWrite resubmits unprocessed items with a short linear backoff.
func (r *SubscriptionRepo) batchWrite(ctx context.Context, reqs []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{r.tableName: reqs}
	for attempt := 0; attempt < batchWriteRetries; attempt++ {
		out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return err
		}
		if len(out.UnprocessedItems[r.tableName]) == 0 {
			return nil
		}
		pending = out.UnprocessedItems
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return fmt.Errorf("%d delete requests left unprocessed", len(pending[r.tableName]))
}
