// Package audit indexes run reports into Elasticsearch.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"overdue-watchdog/internal/models"
	"overdue-watchdog/internal/watchdog/report"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchSink writes one document per run, keyed by run id.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index}
}

func (s *ElasticsearchSink) Record(ctx context.Context, result *models.RunResult, runErr error) error {
	if result == nil {
		return fmt.Errorf("audit: nil run result")
	}

	data, err := json.Marshal(report.Build(result, runErr))
	if err != nil {
		return fmt.Errorf("audit: marshal report: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(data),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(result.RunID),
	)
	if err != nil {
		return fmt.Errorf("audit: index run %s: %w", result.RunID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("audit: index run %s: %s: %s", result.RunID, res.Status(), string(body))
	}
	return nil
}
