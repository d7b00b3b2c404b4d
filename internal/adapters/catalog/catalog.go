// Package catalog registers the lake's database and table in the Glue
// Data Catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/okian/nbalake/internal/domain/lake"
	"github.com/okian/nbalake/pkg/logger"
)

// GlueAPI is the subset of the Glue client used by this package.
type GlueAPI interface {
	CreateDatabase(ctx context.Context, params *glue.CreateDatabaseInput, optFns ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error)
	CreateTable(ctx context.Context, params *glue.CreateTableInput, optFns ...func(*glue.Options)) (*glue.CreateTableOutput, error)
}

// TableSpec describes the external table over the raw data prefix.
type TableSpec struct {
	Database string
	Name     string
	Bucket   string
	Prefix   string
	Columns  []lake.Column
}

// Location is the s3:// URI the table reads from.
func (s TableSpec) Location() string {
	return lake.S3URI(s.Bucket, s.Prefix)
}

// Catalog creates catalog entries. Neither call is idempotent: an existing
// entry is reported as an error like any other failure.
type Catalog struct {
	client GlueAPI
	logger logger.Logger
}

// New creates a Catalog around a Glue client.
func New(client GlueAPI, l logger.Logger) *Catalog {
	if l == nil {
		l = logger.Named("catalog")
	}
	return &Catalog{client: client, logger: l}
}

// CreateDatabase creates a catalog database.
func (c *Catalog) CreateDatabase(ctx context.Context, name, description string) error {
	_, err := c.client.CreateDatabase(ctx, &glue.CreateDatabaseInput{
		DatabaseInput: &types.DatabaseInput{
			Name:        aws.String(name),
			Description: aws.String(description),
		},
	})
	if err != nil {
		c.logger.Error(ctx, "error creating catalog database",
			logger.String("database", name),
			logger.Bool("already_exists", IsAlreadyExists(err)),
			logger.Error(err),
		)
		return fmt.Errorf("%w: database %s: %w", ErrCreateDatabase, name, err)
	}
	c.logger.Info(ctx, "catalog database created", logger.String("database", name))
	return nil
}

// CreateTable creates an external table of line-delimited JSON files.
func (c *Catalog) CreateTable(ctx context.Context, spec TableSpec) error {
	columns := make([]types.Column, len(spec.Columns))
	for i, col := range spec.Columns {
		columns[i] = types.Column{Name: aws.String(col.Name), Type: aws.String(col.Type)}
	}

	_, err := c.client.CreateTable(ctx, &glue.CreateTableInput{
		DatabaseName: aws.String(spec.Database),
		TableInput: &types.TableInput{
			Name:       aws.String(spec.Name),
			TableType:  aws.String(lake.TableType),
			Parameters: lake.TableParameters(),
			StorageDescriptor: &types.StorageDescriptor{
				Columns:      columns,
				Location:     aws.String(spec.Location()),
				InputFormat:  aws.String(lake.InputFormat),
				OutputFormat: aws.String(lake.OutputFormat),
				SerdeInfo: &types.SerDeInfo{
					SerializationLibrary: aws.String(lake.SerializationLib),
				},
			},
		},
	})
	if err != nil {
		c.logger.Error(ctx, "error creating catalog table",
			logger.String("database", spec.Database),
			logger.String("table", spec.Name),
			logger.Bool("already_exists", IsAlreadyExists(err)),
			logger.Error(err),
		)
		return fmt.Errorf("%w: %s.%s: %w", ErrCreateTable, spec.Database, spec.Name, err)
	}
	c.logger.Info(ctx, "catalog table created",
		logger.String("database", spec.Database),
		logger.String("table", spec.Name),
		logger.String("location", spec.Location()),
	)
	return nil
}

// IsAlreadyExists reports whether err is Glue's AlreadyExistsException.
func IsAlreadyExists(err error) bool {
	var exists *types.AlreadyExistsException
	return errors.As(err, &exists)
}
