package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pvflow/internal/loader"
	"pvflow/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// DynamoAPI is the subset of the DynamoDB client the repository calls.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// recordItem is the table layout.
//
// Table requirements:
//   - PK: id (string)
type recordItem struct {
	ID            string `dynamodbav:"id"`
	PVCode        string `dynamodbav:"pv_code"`
	GeneralStatus string `dynamodbav:"general_status"`
	Version       int64  `dynamodbav:"version"`
	Payload       string `dynamodbav:"payload"`
	UpdatedAt     string `dynamodbav:"updated_at"`
}

type dynamoRecordRepo struct {
	ddb       DynamoAPI
	tableName string
	loader    *loader.Loader
}

func NewDynamoRecordRepository(ddb DynamoAPI, tableName string, l *loader.Loader) RecordRepository {
	return &dynamoRecordRepo{ddb: ddb, tableName: tableName, loader: l}
}

func (r *dynamoRecordRepo) List(ctx context.Context) ([]model.ProcessRecord, error) {
	var out []model.ProcessRecord
	var start map[string]types.AttributeValue
	for {
		page, err := r.ddb.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, err
		}
		for _, av := range page.Items {
			var it recordItem
			if err := attributevalue.UnmarshalMap(av, &it); err != nil {
				log.Warn().Err(err).Msg("dynamodb: item ilegivel ignorado")
				continue
			}
			rec, err := r.loader.DecodeRecord([]byte(it.Payload))
			if err != nil {
				log.Warn().Err(err).Str("record_id", it.ID).Msg("registro corrompido ignorado")
				continue
			}
			out = append(out, rec)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		start = page.LastEvaluatedKey
	}
	if out == nil {
		out = []model.ProcessRecord{}
	}
	return out, nil
}

func (r *dynamoRecordRepo) Get(ctx context.Context, id string) (*model.ProcessRecord, error) {
	res, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            recordKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(res.Item) == 0 {
		return nil, ErrNotFound
	}
	var it recordItem
	if err := attributevalue.UnmarshalMap(res.Item, &it); err != nil {
		return nil, err
	}
	rec, err := r.loader.DecodeRecord([]byte(it.Payload))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *dynamoRecordRepo) Put(ctx context.Context, rec model.ProcessRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	av, err := attributevalue.MarshalMap(recordItem{
		ID:            rec.ID,
		PVCode:        rec.PVCode,
		GeneralStatus: string(rec.Status()),
		Version:       rec.Version,
		Payload:       string(b),
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	return err
}

func (r *dynamoRecordRepo) Delete(ctx context.Context, id string) error {
	res, err := r.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          recordKey(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return err
	}
	if len(res.Attributes) == 0 {
		return ErrNotFound
	}
	return nil
}

func recordKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}
