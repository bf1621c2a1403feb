package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase/interfaces"

	retrygo "github.com/avast/retry-go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

const (
	defaultPaymentsTableName = "payments"
	PaymentsStatusIndex      = "status-created_at-index"

	requestIDGuardPrefix = "request_id#"
	referenceGuardPrefix = "gateway_reference#"

	transactConflictAttempts = 3
	transactConflictDelay    = 25 * time.Millisecond
)

type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type paymentItem struct {
	ID               string `dynamodbav:"id"`
	RequestID        string `dynamodbav:"request_id"`
	PropertyID       string `dynamodbav:"property_id"`
	UserID           string `dynamodbav:"user_id"`
	Amount           string `dynamodbav:"amount"`
	Currency         string `dynamodbav:"currency"`
	Status           string `dynamodbav:"status"`
	PendingStatus    string `dynamodbav:"pending_status,omitempty"`
	GatewayReference string `dynamodbav:"gateway_reference"`
	CheckoutURL      string `dynamodbav:"checkout_url,omitempty"`
	FailureReason    string `dynamodbav:"failure_reason,omitempty"`
	CreatedAt        string `dynamodbav:"created_at"`
	UpdatedAt        string `dynamodbav:"updated_at"`
	ApprovedAt       string `dynamodbav:"approved_at,omitempty"`
}

// guardItem reserves a unique value (request_id, gateway_reference) for one payment.
type guardItem struct {
	ID        string `dynamodbav:"id"`
	PaymentID string `dynamodbav:"payment_id"`
}

// PaymentDynamoRepository persists Payment entities in DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: status-created_at-index (PK: pending_status, SK: created_at), sparse
//
// Uniqueness of request_id and gateway_reference is enforced with guard items
// written in the same transaction as the payment.

type PaymentDynamoRepository struct {
	ddb             dynamoAPI
	tableName       string
	conflictRetries uint
	conflictDelay   time.Duration
}

var _ interfaces.IPaymentRepository = (*PaymentDynamoRepository)(nil)

func NewPaymentDynamoRepository(ddb dynamoAPI, tableName string) *PaymentDynamoRepository {
	if tableName == "" {
		tableName = defaultPaymentsTableName
	}
	return &PaymentDynamoRepository{
		ddb:             ddb,
		tableName:       tableName,
		conflictRetries: transactConflictAttempts,
		conflictDelay:   transactConflictDelay,
	}
}

func (r *PaymentDynamoRepository) Create(ctx context.Context, p entities.Payment) (entities.Payment, error) {
	av, err := attributevalue.MarshalMap(toPaymentItem(p))
	if err != nil {
		return entities.Payment{}, err
	}
	requestGuard, err := attributevalue.MarshalMap(guardItem{ID: requestIDGuardPrefix + p.RequestID, PaymentID: p.ID})
	if err != nil {
		return entities.Payment{}, err
	}
	referenceGuard, err := attributevalue.MarshalMap(guardItem{ID: referenceGuardPrefix + p.GatewayReference, PaymentID: p.ID})
	if err != nil {
		return entities.Payment{}, err
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			r.putIfAbsent(av),
			r.putIfAbsent(requestGuard),
			r.putIfAbsent(referenceGuard),
		},
	}
	// A concurrent writer on the same guard item cancels us with
	// TransactionConflict; once it commits, the retry fails its condition.
	err = retrygo.Do(
		func() error {
			_, err := r.ddb.TransactWriteItems(ctx, input)
			return err
		},
		retrygo.Context(ctx),
		retrygo.Attempts(r.conflictRetries),
		retrygo.Delay(r.conflictDelay),
		retrygo.DelayType(retrygo.FixedDelay),
		retrygo.RetryIf(isTransactionConflict),
		retrygo.LastErrorOnly(true),
	)
	if err != nil {
		switch {
		case isConditionConflict(err):
			return entities.Payment{}, interfaces.ErrDuplicatePayment
		case isTransactionConflict(err):
			return entities.Payment{}, fmt.Errorf("%w: concurrent transaction: %v", interfaces.ErrDuplicatePayment, err)
		}
		return entities.Payment{}, err
	}
	return p, nil
}

func (r *PaymentDynamoRepository) putIfAbsent(item map[string]types.AttributeValue) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(#id)"),
			ExpressionAttributeNames: map[string]string{
				"#id": "id",
			},
		},
	}
}

func isConditionConflict(err error) bool {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
		return false
	}
	var failed *types.ConditionalCheckFailedException
	return errors.As(err, &failed)
}

// isTransactionConflict reports a cancellation caused only by another
// in-flight transaction touching the same items.
func isTransactionConflict(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	conflict := false
	for _, reason := range canceled.CancellationReasons {
		switch aws.ToString(reason.Code) {
		case "TransactionConflict":
			conflict = true
		case "", "None":
		default:
			return false
		}
	}
	return conflict
}

func (r *PaymentDynamoRepository) GetByID(ctx context.Context, id string) (entities.Payment, error) {
	raw, err := r.getItem(ctx, id)
	if err != nil || len(raw) == 0 {
		return entities.Payment{}, err
	}
	var it paymentItem
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return entities.Payment{}, err
	}
	return fromPaymentItem(it)
}

func (r *PaymentDynamoRepository) GetByRequestID(ctx context.Context, requestID string) (entities.Payment, error) {
	return r.getByGuard(ctx, requestIDGuardPrefix+requestID)
}

func (r *PaymentDynamoRepository) GetByGatewayReference(ctx context.Context, reference string) (entities.Payment, error) {
	return r.getByGuard(ctx, referenceGuardPrefix+reference)
}

func (r *PaymentDynamoRepository) getByGuard(ctx context.Context, key string) (entities.Payment, error) {
	raw, err := r.getItem(ctx, key)
	if err != nil || len(raw) == 0 {
		return entities.Payment{}, err
	}
	var g guardItem
	if err := attributevalue.UnmarshalMap(raw, &g); err != nil {
		return entities.Payment{}, err
	}
	if g.PaymentID == "" {
		return entities.Payment{}, nil
	}
	return r.GetByID(ctx, g.PaymentID)
}

func (r *PaymentDynamoRepository) getItem(ctx context.Context, id string) (map[string]types.AttributeValue, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	return out.Item, nil
}

func (r *PaymentDynamoRepository) TransitionFromPending(ctx context.Context, id string, t entities.StatusTransition) (entities.Payment, bool, error) {
	values := map[string]types.AttributeValue{
		":pending": &types.AttributeValueMemberS{Value: string(entities.PaymentStatusPending)},
		":status":  &types.AttributeValueMemberS{Value: string(t.Status)},
		":updated": &types.AttributeValueMemberS{Value: formatTime(t.At)},
	}
	var update string
	if t.Status == entities.PaymentStatusSuccess {
		update = "SET #status = :status, updated_at = :updated, approved_at = :approved REMOVE pending_status, failure_reason"
		values[":approved"] = &types.AttributeValueMemberS{Value: formatTime(t.At)}
	} else {
		update = "SET #status = :status, updated_at = :updated, failure_reason = :reason REMOVE pending_status, approved_at"
		values[":reason"] = &types.AttributeValueMemberS{Value: t.FailureReason}
	}

	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String(update),
		ConditionExpression: aws.String("attribute_exists(#id) AND #status = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#id":     "id",
			"#status": "status",
		},
		ExpressionAttributeValues:           values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var failed *types.ConditionalCheckFailedException
		if !errors.As(err, &failed) {
			return entities.Payment{}, false, err
		}
		if len(failed.Item) == 0 {
			return entities.Payment{}, false, nil
		}
		current, err := unmarshalPayment(failed.Item)
		return current, false, err
	}

	updated, err := unmarshalPayment(out.Attributes)
	if err != nil {
		return entities.Payment{}, false, err
	}
	return updated, true, nil
}

func (r *PaymentDynamoRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]entities.Payment, error) {
	paginator := dynamodb.NewQueryPaginator(r.ddb, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(PaymentsStatusIndex),
		KeyConditionExpression: aws.String("pending_status = :pending AND created_at < :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: string(entities.PaymentStatusPending)},
			":cutoff":  &types.AttributeValueMemberS{Value: formatTime(cutoff)},
		},
	})

	items := make([]entities.Payment, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			p, err := unmarshalPayment(raw)
			if err != nil {
				return nil, err
			}
			items = append(items, p)
		}
	}
	return items, nil
}

type paymentStatsItem struct {
	Status string `dynamodbav:"status"`
	Amount string `dynamodbav:"amount"`
}

// Stats scans the table. Guard items carry no status and are filtered out.
func (r *PaymentDynamoRepository) Stats(ctx context.Context) (entities.PaymentStats, error) {
	paginator := dynamodb.NewScanPaginator(r.ddb, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		FilterExpression:         aws.String("attribute_exists(#status)"),
		ProjectionExpression:     aws.String("#status, amount"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
	})

	var stats entities.PaymentStats
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return entities.PaymentStats{}, err
		}
		for _, raw := range page.Items {
			var it paymentStatsItem
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return entities.PaymentStats{}, err
			}
			amount, err := decimal.NewFromString(it.Amount)
			if err != nil {
				return entities.PaymentStats{}, fmt.Errorf("payment amount %q: %w", it.Amount, err)
			}
			stats.Add(entities.Payment{Status: entities.PaymentStatus(it.Status), Amount: amount})
		}
	}
	return stats, nil
}

func (r *PaymentDynamoRepository) Ping(ctx context.Context) error {
	_, err := r.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)})
	return err
}

func unmarshalPayment(raw map[string]types.AttributeValue) (entities.Payment, error) {
	var it paymentItem
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return entities.Payment{}, err
	}
	return fromPaymentItem(it)
}

func toPaymentItem(p entities.Payment) paymentItem {
	it := paymentItem{
		ID:               p.ID,
		RequestID:        p.RequestID,
		PropertyID:       p.PropertyID,
		UserID:           p.UserID,
		Amount:           p.Amount.String(),
		Currency:         p.Currency,
		Status:           string(p.Status),
		GatewayReference: p.GatewayReference,
		CheckoutURL:      p.CheckoutURL,
		FailureReason:    p.FailureReason,
		CreatedAt:        formatTime(p.CreatedAt),
		UpdatedAt:        formatTime(p.UpdatedAt),
	}
	if p.Status == entities.PaymentStatusPending {
		it.PendingStatus = string(entities.PaymentStatusPending)
	}
	if p.ApprovedAt != nil {
		it.ApprovedAt = formatTime(*p.ApprovedAt)
	}
	return it
}

func fromPaymentItem(it paymentItem) (entities.Payment, error) {
	amount, err := decimal.NewFromString(it.Amount)
	if err != nil {
		return entities.Payment{}, fmt.Errorf("payment %s: invalid amount %q: %w", it.ID, it.Amount, err)
	}
	created, _ := parseTime(it.CreatedAt)
	updated, _ := parseTime(it.UpdatedAt)
	p := entities.Payment{
		ID:               it.ID,
		RequestID:        it.RequestID,
		PropertyID:       it.PropertyID,
		UserID:           it.UserID,
		Amount:           amount,
		Currency:         it.Currency,
		Status:           entities.PaymentStatus(it.Status),
		GatewayReference: it.GatewayReference,
		CheckoutURL:      it.CheckoutURL,
		FailureReason:    it.FailureReason,
		CreatedAt:        created,
		UpdatedAt:        updated,
	}
	if it.ApprovedAt != "" {
		if at, err := parseTime(it.ApprovedAt); err == nil {
			p.ApprovedAt = &at
		}
	}
	return p, nil
}
