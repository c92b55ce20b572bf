package dynamodb

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/Strob0t/taskboard/internal/domain/task"
	"github.com/Strob0t/taskboard/internal/port/database"
)

const tableWaitTimeout = 2 * time.Minute

// Store implements database.Store on a DynamoDB table keyed by "id".
type Store struct {
	client API
	table  string
}

var _ database.Store = (*Store)(nil)

// NewStore creates a Store for the given table.
func NewStore(client API, table string) *Store {
	return &Store{client: client, table: table}
}

// item is the stored attribute layout. Timestamps are RFC 3339 strings.
type item struct {
	ID          string `dynamodbav:"id"`
	Title       string `dynamodbav:"title"`
	Description string `dynamodbav:"description"`
	Status      string `dynamodbav:"status"`
	CreatedAt   string `dynamodbav:"createdAt"`
	UpdatedAt   string `dynamodbav:"updatedAt"`
}

func toItem(t task.Task) item {
	return item{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

func (it item) task() (task.Task, error) {
	created, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: task %s createdAt: %w", database.ErrCorruptRecord, it.ID, err)
	}
	updated, err := time.Parse(time.RFC3339Nano, it.UpdatedAt)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: task %s updatedAt: %w", database.ErrCorruptRecord, it.ID, err)
	}
	return task.Task{
		ID:          it.ID,
		Title:       it.Title,
		Description: it.Description,
		Status:      task.Status(it.Status),
		CreatedAt:   created.UTC(),
		UpdatedAt:   updated.UTC(),
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func decode(av map[string]types.AttributeValue) (*task.Task, error) {
	var it item
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return nil, fmt.Errorf("%w: unmarshal task: %w", database.ErrCorruptRecord, err)
	}
	t, err := it.task()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	out, err := s.client.GetItem(ctx, &ddb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, classify(err))
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return decode(out.Item)
}

func (s *Store) PutTask(ctx context.Context, t task.Task) error {
	av, err := attributevalue.MarshalMap(toItem(t))
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", t.ID, err)
	}
	if _, err := s.client.PutItem(ctx, &ddb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put task %s: %w", t.ID, classify(err))
	}
	return nil
}

// UpdateTask sets the given fields under an attribute_exists(id) condition so
// that a missing task is reported instead of created.
func (s *Store) UpdateTask(ctx context.Context, id string, u task.Update) (*task.Task, error) {
	upd := expression.Set(expression.Name("updatedAt"), expression.Value(formatTime(u.UpdatedAt)))
	if u.Title != nil {
		upd = upd.Set(expression.Name("title"), expression.Value(*u.Title))
	}
	if u.Description != nil {
		upd = upd.Set(expression.Name("description"), expression.Value(*u.Description))
	}
	if u.Status != nil {
		upd = upd.Set(expression.Name("status"), expression.Value(string(*u.Status)))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(upd).
		WithCondition(expression.AttributeExists(expression.Name("id"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build update expression: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &ddb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, nil
		}
		return nil, fmt.Errorf("update task %s: %w", id, classify(err))
	}
	return decode(out.Attributes)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.client.DeleteItem(ctx, &ddb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key(id),
	}); err != nil {
		return fmt.Errorf("delete task %s: %w", id, classify(err))
	}
	return nil
}

// ScanTasks reads one Scan page. The status filter runs server-side after
// the page limit, so a page may hold fewer items than requested.
func (s *Store) ScanTasks(ctx context.Context, in database.ScanInput) (database.Page, error) {
	input := &ddb.ScanInput{
		TableName: aws.String(s.table),
		Limit:     aws.Int32(int32(database.PageLimit(in.Limit))), //nolint:gosec // page sizes are small
	}

	if in.Status != nil {
		expr, err := expression.NewBuilder().
			WithFilter(expression.Name("status").Equal(expression.Value(string(*in.Status)))).
			Build()
		if err != nil {
			return database.Page{}, fmt.Errorf("build filter expression: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if in.Cursor != "" {
		id, err := decodeCursor(in.Cursor)
		if err != nil {
			return database.Page{}, err
		}
		input.ExclusiveStartKey = key(id)
	}

	out, err := s.client.Scan(ctx, input)
	if err != nil {
		return database.Page{}, fmt.Errorf("scan tasks: %w", classify(err))
	}

	page := database.Page{Items: make([]task.Task, 0, len(out.Items))}
	for _, av := range out.Items {
		t, err := decode(av)
		if err != nil {
			return database.Page{}, err
		}
		page.Items = append(page.Items, *t)
	}

	if len(out.LastEvaluatedKey) > 0 {
		last, ok := out.LastEvaluatedKey["id"].(*types.AttributeValueMemberS)
		if !ok {
			return database.Page{}, errors.New("scan tasks: unexpected LastEvaluatedKey shape")
		}
		page.Next = encodeCursor(last.Value)
	}
	return page, nil
}

// classify marks request validation failures as permanent.
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
		return fmt.Errorf("%w: %w", database.ErrRejected, err)
	}
	return err
}

func encodeCursor(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeCursor(c string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(c)
	if err != nil || len(b) == 0 {
		return "", fmt.Errorf("%w %q", database.ErrInvalidCursor, c)
	}
	return string(b), nil
}

// Ping describes the table, matching the health check of the board API.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &ddb.DescribeTableInput{TableName: aws.String(s.table)}); err != nil {
		return fmt.Errorf("describe table %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// EnsureTable creates the table with on-demand billing when it does not
// exist and waits until it is active.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &ddb.DescribeTableInput{TableName: aws.String(s.table)})
	if err == nil {
		return nil
	}
	var rnf *types.ResourceNotFoundException
	if !errors.As(err, &rnf) {
		return fmt.Errorf("describe table %s: %w", s.table, err)
	}

	if _, err := s.client.CreateTable(ctx, &ddb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	}); err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("create table %s: %w", s.table, err)
		}
	}

	waiter := ddb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &ddb.DescribeTableInput{TableName: aws.String(s.table)}, tableWaitTimeout); err != nil {
		return fmt.Errorf("wait for table %s: %w", s.table, err)
	}
	return nil
}
