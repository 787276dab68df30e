package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/todoapp/todo-backend/internal/model"
)

// Attribute names of the todos table.
const (
	attrUserID  = "userId"
	attrTodoID  = "todoId"
	attrName    = "name"
	attrDueDate = "dueDate"
	attrDone    = "done"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoDBAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

var _ DynamoDBAPI = (*dynamodb.Client)(nil)

// DynamoStore is a TodoStore backed by a DynamoDB table with a global
// secondary index on todoId.
type DynamoStore struct {
	client    DynamoDBAPI
	table     string
	todoIndex string
	logger    *slog.Logger
	now       func() time.Time
}

var _ TodoStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table and index.
func NewDynamoStore(client DynamoDBAPI, table, todoIndex string, logger *slog.Logger) *DynamoStore {
	return &DynamoStore{
		client:    client,
		table:     table,
		todoIndex: todoIndex,
		logger:    logger.With("component", "dynamo_store"),
		now:       time.Now,
	}
}

// ListByUser queries the table's partition for userID.
func (s *DynamoStore) ListByUser(ctx context.Context, userID string) ([]*model.TodoItem, error) {
	keyCond := expression.Key(attrUserID).Equal(expression.Value(userID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query todos for user: %w", err)
	}

	items := make([]*model.TodoItem, 0, len(out.Items))
	if len(out.Items) > 0 {
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to decode todos: %w", err)
		}
	}

	s.logger.DebugContext(ctx, "list query returned",
		slog.String("user_id", userID),
		slog.Int("count", len(items)),
	)

	return items, nil
}

// FindByID queries the todoId index, newest first, and returns the first hit.
func (s *DynamoStore) FindByID(ctx context.Context, todoID string) (*model.TodoItem, error) {
	if todoID == "" {
		return nil, ErrMissingTodoID
	}

	keyCond := expression.Key(attrTodoID).Equal(expression.Value(todoID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup query: %w", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(s.todoIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query todo by id: %w", err)
	}

	if len(out.Items) == 0 {
		return nil, ErrTodoNotFound
	}

	var item model.TodoItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to decode todo: %w", err)
	}

	return &item, nil
}

// Create writes a new item unconditionally.
func (s *DynamoStore) Create(ctx context.Context, userID string, req model.CreateTodoRequest) (*model.TodoItem, error) {
	item := model.NewTodoItem(newTodoID(), userID, nowMillis(s.now()), req)

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode todo: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}); err != nil {
		return nil, fmt.Errorf("failed to put todo: %w", err)
	}

	s.logger.DebugContext(ctx, "todo stored",
		slog.String("user_id", item.UserID),
		slog.String("todo_id", item.TodoID),
	)

	return item, nil
}

// Update sets name, dueDate and done. A nil dueDate removes the attribute.
func (s *DynamoStore) Update(ctx context.Context, item *model.TodoItem, req model.UpdateTodoRequest) error {
	update := expression.
		Set(expression.Name(attrName), expression.Value(req.Name)).
		Set(expression.Name(attrDone), expression.Value(req.Done))
	if req.DueDate != nil {
		update = update.Set(expression.Name(attrDueDate), expression.Value(*req.DueDate))
	} else {
		update = update.Remove(expression.Name(attrDueDate))
	}

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       itemKey(item),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "unable to update todo item",
			slog.String("todo_id", item.TodoID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("unable to update todo item: %w", err)
	}

	s.logger.DebugContext(ctx, "update succeeded",
		slog.String("todo_id", item.TodoID),
		slog.Int("attributes_returned", len(out.Attributes)),
	)

	return nil
}

// Delete removes the item's key. Deleting a missing key is not an error.
func (s *DynamoStore) Delete(ctx context.Context, item *model.TodoItem) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       itemKey(item),
	}); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	s.logger.DebugContext(ctx, "todo deleted", slog.String("todo_id", item.TodoID))

	return nil
}

// Ping checks that the table is reachable.
func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	return err
}

func itemKey(item *model.TodoItem) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrUserID: &types.AttributeValueMemberS{Value: item.UserID},
		attrTodoID: &types.AttributeValueMemberS{Value: item.TodoID},
	}
}
