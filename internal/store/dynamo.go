package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"portrait-pipeline/internal/model"
)

// Partition key layouts shared with the catalog producer.
const (
	processKeyPrefix  = "#UUID#"
	displayKeyPrefix  = "#USERID#"
	resourceKeyPrefix = "#UUID#"
)

// DynamoTables names the three tables a DynamoStore uses.
type DynamoTables struct {
	Process      string
	Display      string
	BaseResource string
}

// DynamoStore is the production backend. Every table has a string
// partition key "PK"; the catalog table adds sort key "SK".
type DynamoStore struct {
	client dynamodbiface.DynamoDBAPI
	tables DynamoTables
}

// NewDynamoStore creates a DynamoStore.
func NewDynamoStore(client dynamodbiface.DynamoDBAPI, tables DynamoTables) *DynamoStore {
	return &DynamoStore{client: client, tables: tables}
}

func processKey(requestID string) string { return processKeyPrefix + requestID }

func displayKey(userID string) string { return displayKeyPrefix + userID }

func catalogKey(theme, gender, skin string) string {
	return "#THEME#" + theme + "#GENDER#" + gender + "#SKIN#" + skin
}

func pk(value string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{"PK": {S: aws.String(value)}}
}

func timeAttr(t time.Time) *dynamodb.AttributeValue {
	return &dynamodb.AttributeValue{S: aws.String(t.UTC().Format(time.RFC3339Nano))}
}

func isConditionFailed(err error) bool {
	aerr, ok := err.(awserr.Error)
	return ok && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
}

// Close is a no-op; the SDK client holds no connection state.
func (d *DynamoStore) Close() error { return nil }

func (d *DynamoStore) SaveProcess(ctx context.Context, rec *model.ProcessRecord) error {
	item, err := dynamodbattribute.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal process %s: %w", rec.RequestID, err)
	}
	item["PK"] = &dynamodb.AttributeValue{S: aws.String(processKey(rec.RequestID))}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tables.Process),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("save process %s: %w", rec.RequestID, err)
	}
	return nil
}

func (d *DynamoStore) GetProcess(ctx context.Context, requestID string) (*model.ProcessRecord, error) {
	// Swap can run seconds after the gateway wrote the record.
	out, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tables.Process),
		Key:            pk(processKey(requestID)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get process %s: %w", requestID, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var rec model.ProcessRecord
	if err := dynamodbattribute.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal process %s: %w", requestID, err)
	}
	if rec.RequestID == "" {
		rec.RequestID = requestID
	}
	return &rec, nil
}

// UpdateProcessStatus is conditional on the stored status still being
// behind status, so a slow stage cannot overwrite a later one.
func (d *DynamoStore) UpdateProcessStatus(ctx context.Context, requestID string, status model.RequestStatus, at time.Time) error {
	values := map[string]*dynamodb.AttributeValue{
		":status":     {S: aws.String(string(status))},
		":updated_at": timeAttr(at),
	}
	condition := "attribute_exists(PK) AND attribute_not_exists(#status)"
	if prev := status.Predecessors(); len(prev) > 0 {
		names := make([]string, len(prev))
		for i, p := range prev {
			names[i] = fmt.Sprintf(":s%d", i)
			values[names[i]] = &dynamodb.AttributeValue{S: aws.String(string(p))}
		}
		condition = "attribute_exists(PK) AND (attribute_not_exists(#status) OR #status IN (" +
			strings.Join(names, ", ") + "))"
	}

	_, err := d.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(d.tables.Process),
		Key:                 pk(processKey(requestID)),
		UpdateExpression:    aws.String("SET #status = :status, updated_at = :updated_at"),
		ConditionExpression: aws.String(condition),
		ExpressionAttributeNames: map[string]*string{
			"#status": aws.String("status"),
		},
		ExpressionAttributeValues: values,
	})
	if isConditionFailed(err) {
		return d.processExists(ctx, requestID)
	}
	if err != nil {
		return fmt.Errorf("update process %s: %w", requestID, err)
	}
	return nil
}

// processExists tells a missing record (ErrNotFound) from one that is
// already further along (nil).
func (d *DynamoStore) processExists(ctx context.Context, requestID string) error {
	out, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(d.tables.Process),
		Key:                  pk(processKey(requestID)),
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String("PK"),
	})
	if err != nil {
		return fmt.Errorf("update process %s: %w", requestID, err)
	}
	if len(out.Item) == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertDisplay is a single UpdateItem so concurrent writers cannot lose
// the created timestamp between a read and a put.
func (d *DynamoStore) UpsertDisplay(ctx context.Context, rec *model.DisplayRecord) error {
	_, err := d.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tables.Display),
		Key:       pk(displayKey(rec.UserID)),
		UpdateExpression: aws.String("SET #uuid = :uuid, userId = :userId, " +
			"base_image_object_key = :base, result_object_key = :result, base_story = :story, " +
			"theme = :theme, gender = :gender, skin = :skin, updated_at = :now, " +
			"created_at = if_not_exists(created_at, :now)"),
		ExpressionAttributeNames: map[string]*string{
			"#uuid": aws.String("uuid"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":uuid":   {S: aws.String(rec.RequestID)},
			":userId": {S: aws.String(rec.UserID)},
			":base":   {S: aws.String(rec.BaseImageKey)},
			":result": {S: aws.String(rec.ResultImageKey)},
			":story":  {S: aws.String(rec.Story)},
			":theme":  {S: aws.String(rec.Theme)},
			":gender": {S: aws.String(rec.Gender)},
			":skin":   {S: aws.String(rec.Skin)},
			":now":    timeAttr(rec.UpdatedAt),
		},
	})
	if err != nil {
		return fmt.Errorf("upsert display %s: %w", rec.UserID, err)
	}
	return nil
}

func (d *DynamoStore) GetDisplay(ctx context.Context, userID string) (*model.DisplayRecord, error) {
	out, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tables.Display),
		Key:            pk(displayKey(userID)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get display %s: %w", userID, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var rec model.DisplayRecord
	if err := dynamodbattribute.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal display %s: %w", userID, err)
	}
	if rec.UserID == "" {
		rec.UserID = userID
	}
	return &rec, nil
}

func (d *DynamoStore) QueryBaseResources(ctx context.Context, theme, gender, skin string) ([]model.BaseResource, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.BaseResource),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]*string{
			"#pk": aws.String("PK"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":pk": {S: aws.String(catalogKey(theme, gender, skin))},
		},
	}

	var out []model.BaseResource
	var decodeErr error
	err := d.client.QueryPagesWithContext(ctx, input, func(page *dynamodb.QueryOutput, _ bool) bool {
		for _, item := range page.Items {
			var res model.BaseResource
			if err := dynamodbattribute.UnmarshalMap(item, &res); err != nil {
				decodeErr = err
				return false
			}
			if sk := item["SK"]; sk != nil && sk.S != nil {
				res.ResourceID = strings.TrimPrefix(*sk.S, resourceKeyPrefix)
			}
			// Older producer rows carry only the key.
			if res.Theme == "" {
				res.Theme, res.Gender, res.Skin = theme, gender, skin
			}
			out = append(out, res)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("query base resources: %w", err)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("unmarshal base resource: %w", decodeErr)
	}
	return out, nil
}

func (d *DynamoStore) PutBaseResource(ctx context.Context, res *model.BaseResource) error {
	item, err := dynamodbattribute.MarshalMap(res)
	if err != nil {
		return fmt.Errorf("marshal base resource %s: %w", res.ResourceID, err)
	}
	item["PK"] = &dynamodb.AttributeValue{S: aws.String(catalogKey(res.Theme, res.Gender, res.Skin))}
	item["SK"] = &dynamodb.AttributeValue{S: aws.String(resourceKeyPrefix + res.ResourceID)}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tables.BaseResource),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put base resource %s: %w", res.ResourceID, err)
	}
	return nil
}
