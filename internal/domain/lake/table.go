package lake

import "strings"

// Column is one typed column of a catalog table.
type Column struct {
	Name string
	Type string
}

// PlayerColumns is the schema of the player table. Fields of a record that
// are not listed here are ignored by the query engine.
var PlayerColumns = []Column{ //nolint:gochecknoglobals // fixed table schema
	{Name: "PlayerID", Type: "int"},
	{Name: "FirstName", Type: "string"},
	{Name: "LastName", Type: "string"},
	{Name: "Team", Type: "string"},
	{Name: "Position", Type: "string"},
	{Name: "Points", Type: "int"},
}

// Storage descriptor of an external table over line-delimited JSON files.
const (
	TableType         = "EXTERNAL_TABLE"
	InputFormat       = "org.apache.hadoop.mapred.TextInputFormat"
	OutputFormat      = "org.apache.hadoop.hive.ql.io.HiveIgnoreKeyTextOutputFormat"
	SerializationLib  = "org.openx.data.jsonserde.JsonSerDe"
	ContentTypeJSON   = "application/json"
	DatabaseComment   = "Glue database for NBA sports analytics."
	defaultURIScheme  = "s3://"
	classificationKey = "classification"
)

// TableParameters are the table-level parameters registered with the table.
func TableParameters() map[string]string {
	return map[string]string{classificationKey: "json"}
}

// S3URI joins a bucket and a key prefix into an s3:// URI.
func S3URI(bucket, prefix string) string {
	return defaultURIScheme + bucket + "/" + strings.TrimPrefix(prefix, "/")
}

// PrefixOf returns the directory part of an object key with a trailing slash,
// or "" for a key at the bucket root.
func PrefixOf(key string) string {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return ""
	}
	return key[:i+1]
}
