package config

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"
)

var (
	bqClient   *bigquery.Client
	bqClientMu sync.Mutex
)

// BigQueryDataset is the dataset holding the record table (BIGQUERY_DATASET, default "broker").
func BigQueryDataset() string {
	if v := os.Getenv("BIGQUERY_DATASET"); v != "" {
		return v
	}
	return "broker"
}

// GetBigQueryClient returns the shared BigQuery client. Credentials come from
// BIGQUERY_CREDENTIALS_JSON when set, otherwise Application Default Credentials.
func GetBigQueryClient(ctx context.Context) (*bigquery.Client, error) {
	bqClientMu.Lock()
	defer bqClientMu.Unlock()
	if bqClient != nil {
		return bqClient, nil
	}

	projectID := GoogleProjectID("BIGQUERY_PROJECT_ID")
	if projectID == "" {
		return nil, errors.New("BIGQUERY_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	var opts []option.ClientOption
	if credJSON := os.Getenv("BIGQUERY_CREDENTIALS_JSON"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	c, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	bqClient = c
	log.Printf("bigquery client ready (project_id=%s dataset=%s)", projectID, BigQueryDataset())
	return bqClient, nil
}
