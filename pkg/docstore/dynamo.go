package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// NewDynamoClient builds a DynamoDB client from an AWS config.
func NewDynamoClient(cfg sdkaws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

// DynamoStore maps each collection to the table `<prefix><collection>` with a
// string partition key named `id`.
type DynamoStore struct {
	client DynamoAPI
	prefix string
}

func NewDynamoStore(client DynamoAPI, tablePrefix string) *DynamoStore {
	return &DynamoStore{client: client, prefix: tablePrefix}
}

type ddbDocument struct {
	id   string
	item map[string]types.AttributeValue
}

func (d ddbDocument) ID() string { return d.id }

func (d ddbDocument) Decode(v interface{}) error {
	return attributevalue.UnmarshalMap(d.item, v)
}

func (d *DynamoStore) table(collection string) *string {
	return sdkaws.String(d.prefix + collection)
}

func keyFor(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func newDDBDocument(item map[string]types.AttributeValue) (Document, error) {
	idAttr, ok := item["id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, errors.New("item has no string id attribute")
	}
	return ddbDocument{id: idAttr.Value, item: item}, nil
}

func (d *DynamoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      d.table(collection),
		Key:            keyFor(id),
		ConsistentRead: sdkaws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return newDDBDocument(out.Item)
}

func (d *DynamoStore) QueryEquals(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	input := &dynamodb.ScanInput{TableName: d.table(collection)}
	if len(filters) > 0 {
		names := make(map[string]string, len(filters))
		values := make(map[string]types.AttributeValue, len(filters))
		clauses := make([]string, 0, len(filters))
		for i, f := range filters {
			namePh := fmt.Sprintf("#f%d", i)
			valuePh := fmt.Sprintf(":v%d", i)
			av, err := attributevalue.Marshal(f.Value)
			if err != nil {
				return nil, fmt.Errorf("marshal filter value %s: %w", f.Field, err)
			}
			names[namePh] = f.Field
			values[valuePh] = av
			clauses = append(clauses, fmt.Sprintf("%s = %s", namePh, valuePh))
		}
		input.FilterExpression = sdkaws.String(strings.Join(clauses, " AND "))
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	var out []Document
	paginator := dynamodb.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan page failed: %w", err)
		}
		for _, it := range page.Items {
			doc, err := newDDBDocument(it)
			if err != nil {
				return nil, err
			}
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *DynamoStore) Insert(ctx context.Context, collection string, record interface{}) (string, error) {
	id := uuid.New().String()
	if err := d.Put(ctx, collection, id, record); err != nil {
		return "", err
	}
	return id, nil
}

func (d *DynamoStore) Put(ctx context.Context, collection, id string, record interface{}) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	item["id"] = &types.AttributeValueMemberS{Value: id}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: d.table(collection), Item: item})
	if err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (d *DynamoStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	names := map[string]string{"#id": "id"}
	values := make(map[string]types.AttributeValue, len(fields))
	sets := make([]string, 0, len(fields))
	i := 0
	for k, v := range fields {
		namePh := fmt.Sprintf("#f%d", i)
		valuePh := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal update value: %w", err)
		}
		names[namePh] = k
		values[valuePh] = av
		sets = append(sets, fmt.Sprintf("%s = %s", namePh, valuePh))
		i++
	}
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 d.table(collection),
		Key:                       keyFor(id),
		UpdateExpression:          sdkaws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       sdkaws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("update item failed: %w", err)
	}
	return nil
}

func (d *DynamoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                d.table(collection),
		Key:                      keyFor(id),
		ConditionExpression:      sdkaws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("delete item failed: %w", err)
	}
	return nil
}

// List performs a Scan with skip/limit pagination and a separate count scan.
func (d *DynamoStore) List(ctx context.Context, collection string, limit, skip int) ([]Document, int64, error) {
	var out []Document
	seen := 0
	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{TableName: d.table(collection)})
pages:
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("scan page failed: %w", err)
		}
		for _, it := range page.Items {
			if seen < skip {
				seen++
				continue
			}
			doc, err := newDDBDocument(it)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, doc)
			if limit > 0 && len(out) >= limit {
				break pages
			}
		}
	}

	countPaginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName: d.table(collection),
		Select:    types.SelectCount,
	})
	var total int64
	for countPaginator.HasMorePages() {
		page, err := countPaginator.NextPage(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("scan count failed: %w", err)
		}
		total += int64(page.Count)
	}
	return out, total, nil
}
