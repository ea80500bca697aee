// Package ddb provides read access to the claim results table written by the
// analysis backend. Nothing in this repo writes to the table.
package ddb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kylejryan/healthcare-claims-dashboard/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrNotFound is returned when no record exists for a claim id.
var ErrNotFound = errors.New("claim not found")

// API is the subset of the DynamoDB client the repo uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Repo wraps a DynamoDB client, table name and user index for claim reads.
type Repo struct {
	DB        API
	Table     string
	UserIndex string
}

// GetClaim loads one record by claim id.
func (r *Repo) GetClaim(ctx context.Context, claimID string) (*models.StoredClaim, error) {
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.Table),
		Key: map[string]types.AttributeValue{
			"claim_id": &types.AttributeValueMemberS{Value: claimID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get claim %s: %w", claimID, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var c models.StoredClaim
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("decode claim %s: %w", claimID, err)
	}
	return &c, nil
}

// QueryByUser walks a user's records newest first, calling fn for each one
// until fn returns false. A non-empty level is applied as a filter
// expression, so every record handed to fn already matches it.
func (r *Repo) QueryByUser(ctx context.Context, userID string, level models.RiskLevel, fn func(models.StoredClaim) bool) error {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key("user_id").Equal(expression.Value(userID)))
	if level != "" {
		builder = builder.WithFilter(expression.Name("risk_level").Equal(expression.Value(string(level))))
	}
	expr, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build user query: %w", err)
	}

	p := dynamodb.NewQueryPaginator(r.DB, &dynamodb.QueryInput{
		TableName:                 aws.String(r.Table),
		IndexName:                 aws.String(r.UserIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("query claims for %s: %w", userID, err)
		}
		var items []models.StoredClaim
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return fmt.Errorf("decode claims for %s: %w", userID, err)
		}
		for _, c := range items {
			if !fn(c) {
				return nil
			}
		}
	}
	return nil
}

// KeyScan is what a table scan found about referenced objects.
type KeyScan struct {
	Keys map[string]struct{}
	// Records counts scanned items; Unkeyed those with no usable key.
	Records int
	Unkeyed int
}

// ObjectKeys returns every object key referenced by a stored record. A key is
// read from the top-level s3_key, or from data.source_file.key where data is
// either a map or the JSON string the analysis backend writes.
func (r *Repo) ObjectKeys(ctx context.Context) (KeyScan, error) {
	scan := KeyScan{Keys: make(map[string]struct{})}
	expr, err := expression.NewBuilder().
		WithProjection(expression.NamesList(expression.Name("s3_key"), expression.Name("data"))).
		Build()
	if err != nil {
		return scan, fmt.Errorf("build key projection: %w", err)
	}

	p := dynamodb.NewScanPaginator(r.DB, &dynamodb.ScanInput{
		TableName:                aws.String(r.Table),
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return scan, fmt.Errorf("scan object keys: %w", err)
		}
		for _, item := range page.Items {
			scan.Records++
			key := objectKey(item)
			if key == "" {
				scan.Unkeyed++
				continue
			}
			scan.Keys[key] = struct{}{}
		}
	}
	return scan, nil
}

func objectKey(item map[string]types.AttributeValue) string {
	if v, ok := item["s3_key"].(*types.AttributeValueMemberS); ok && v.Value != "" {
		return v.Value
	}
	switch data := item["data"].(type) {
	case *types.AttributeValueMemberS:
		var doc struct {
			SourceFile struct {
				Key string `json:"key"`
			} `json:"source_file"`
		}
		if json.Unmarshal([]byte(data.Value), &doc) == nil {
			return doc.SourceFile.Key
		}
	case *types.AttributeValueMemberM:
		if src, ok := data.Value["source_file"].(*types.AttributeValueMemberM); ok {
			if k, ok := src.Value["key"].(*types.AttributeValueMemberS); ok {
				return k.Value
			}
		}
	}
	return ""
}
