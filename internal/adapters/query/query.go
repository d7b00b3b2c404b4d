// Package query configures the Athena side of the lake.
package query

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/okian/nbalake/pkg/logger"
)

// AthenaAPI is the subset of the Athena client used by this package.
type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
}

// Spec describes the statement submitted to configure the query service.
type Spec struct {
	// AnalyticsDatabase is created with IF NOT EXISTS.
	AnalyticsDatabase string
	// ContextDatabase is the catalog database the statement runs in.
	ContextDatabase string
	// OutputLocation is where Athena writes results.
	OutputLocation string
	// RequestToken makes resubmission of the same run idempotent. Optional.
	RequestToken string
}

// Statement is the SQL submitted for spec.
func (s Spec) Statement() string {
	return "CREATE DATABASE IF NOT EXISTS " + s.AnalyticsDatabase
}

// Configurator submits the configuration statement.
type Configurator struct {
	client AthenaAPI
	logger logger.Logger
}

// New creates a Configurator around an Athena client.
func New(client AthenaAPI, l logger.Logger) *Configurator {
	if l == nil {
		l = logger.Named("query")
	}
	return &Configurator{client: client, logger: l}
}

// Configure submits one query with the output location and returns its
// execution id. It does not wait for the query to finish.
func (c *Configurator) Configure(ctx context.Context, spec Spec) (string, error) {
	if !validIdentifier(spec.AnalyticsDatabase) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, spec.AnalyticsDatabase)
	}
	if spec.OutputLocation == "" {
		return "", ErrOutputLocation
	}

	in := &athena.StartQueryExecutionInput{
		QueryString:           aws.String(spec.Statement()),
		QueryExecutionContext: &types.QueryExecutionContext{Database: aws.String(spec.ContextDatabase)},
		ResultConfiguration:   &types.ResultConfiguration{OutputLocation: aws.String(spec.OutputLocation)},
	}
	if spec.RequestToken != "" {
		in.ClientRequestToken = aws.String(spec.RequestToken)
	}

	out, err := c.client.StartQueryExecution(ctx, in)
	if err != nil {
		c.logger.Error(ctx, "error configuring query service", logger.String("output_location", spec.OutputLocation), logger.Error(err))
		return "", fmt.Errorf("%w: %w", ErrStartQuery, err)
	}

	id := aws.ToString(out.QueryExecutionId)
	c.logger.Info(ctx, "query service output location configured",
		logger.String("output_location", spec.OutputLocation),
		logger.String("query_execution_id", id),
	)
	return id, nil
}

// validIdentifier accepts the characters Athena allows in an unquoted
// database name.
func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
