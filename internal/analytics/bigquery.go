package analytics

import (
	"context"
	"fmt"

	bigquery "google.golang.org/api/bigquery/v2"
)

// StationThroughput is one row of the station-level rollup.
type StationThroughput struct {
	Station   string `json:"station"`
	Documents int64  `json:"documents"`
}

// StationReporter runs warehouse rollups. The BigQuery path is optional;
// deployments without a project fall back to NoopStationReporter.
type StationReporter interface {
	StationThroughput(ctx context.Context, tenantID string) ([]StationThroughput, error)
}

type NoopStationReporter struct{}

func (NoopStationReporter) StationThroughput(ctx context.Context, tenantID string) ([]StationThroughput, error) {
	return nil, nil
}

// BigQueryStationReporter queries the events dataset for per-station
// document volumes over the trailing 30 days.
type BigQueryStationReporter struct {
	svc     *bigquery.Service
	project string
	dataset string
}

func NewBigQueryStationReporter(ctx context.Context, project, dataset string) (*BigQueryStationReporter, error) {
	if project == "" || dataset == "" {
		return nil, fmt.Errorf("bigquery reporter requires project and dataset")
	}
	svc, err := bigquery.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create bigquery service: %w", err)
	}
	return &BigQueryStationReporter{svc: svc, project: project, dataset: dataset}, nil
}

func (r *BigQueryStationReporter) StationThroughput(ctx context.Context, tenantID string) ([]StationThroughput, error) {
	useLegacy := false
	query := fmt.Sprintf(`SELECT station, COUNT(*) AS documents
FROM %s.document_events
WHERE tenant_id = @tenant
  AND event_time >= TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL 30 DAY)
GROUP BY station
ORDER BY documents DESC`, r.dataset)

	resp, err := r.svc.Jobs.Query(r.project, &bigquery.QueryRequest{
		Query:        query,
		UseLegacySql: &useLegacy,
		QueryParameters: []*bigquery.QueryParameter{{
			Name:           "tenant",
			ParameterType:  &bigquery.QueryParameterType{Type: "STRING"},
			ParameterValue: &bigquery.QueryParameterValue{Value: tenantID},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("station throughput query: %w", err)
	}

	out := make([]StationThroughput, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		if len(row.F) < 2 {
			continue
		}
		station, _ := row.F[0].V.(string)
		var docs int64
		if s, ok := row.F[1].V.(string); ok {
			fmt.Sscanf(s, "%d", &docs)
		}
		out = append(out, StationThroughput{Station: station, Documents: docs})
	}
	return out, nil
}
