package ledger

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// BigQuerySource reads the ledger from a table whose columns use the same
// names as the CSV export (Codigo, Nome, Data, ...).
type BigQuerySource struct {
	ProjectID string
	Dataset   string
	Table     string
}

var bqIdentifier = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ParseBigQueryURI parses bq://project.dataset.table.
func ParseBigQueryURI(uri string) (*BigQuerySource, error) {
	parts := strings.Split(strings.TrimPrefix(uri, "bq://"), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid BigQuery URI %q: expected bq://project.dataset.table", uri)
	}
	for _, p := range parts {
		if !bqIdentifier.MatchString(p) {
			return nil, fmt.Errorf("invalid BigQuery URI %q: bad identifier %q", uri, p)
		}
	}
	return &BigQuerySource{ProjectID: parts[0], Dataset: parts[1], Table: parts[2]}, nil
}

func (s *BigQuerySource) Name() string {
	return fmt.Sprintf("bq://%s.%s.%s", s.ProjectID, s.Dataset, s.Table)
}

func (s *BigQuerySource) query() string {
	return fmt.Sprintf("SELECT * FROM `%s.%s.%s`", s.ProjectID, s.Dataset, s.Table)
}

func (s *BigQuerySource) Fetch(ctx context.Context) (*Table, error) {
	client, err := bigquery.NewClient(ctx, s.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("BigQuerySource: bigquery client: %w", err)
	}
	defer client.Close()

	it, err := client.Query(s.query()).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("BigQuerySource: query read: %w", err)
	}

	t := &Table{}
	for line := 1; ; line++ {
		var vals []bigquery.Value
		err := it.Next(&vals)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("BigQuerySource: iter next: %w", err)
		}
		if t.Header == nil {
			t.Header = schemaNames(it.Schema)
		}

		cells := make([]string, len(vals))
		for i, v := range vals {
			cells[i] = bqValueString(v)
		}
		t.Rows = append(t.Rows, Row{Line: line, Cells: cells})
	}

	if t.Header == nil {
		t.Header = schemaNames(it.Schema)
	}

	return t, nil
}

func schemaNames(schema bigquery.Schema) []string {
	names := make([]string, len(schema))
	for i, f := range schema {
		names[i] = f.Name
	}
	return names
}

// bqValueString renders a BigQuery cell in a form the CSV parsers accept.
func bqValueString(v bigquery.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "Pago"
		}
		return "Não Pago"
	case *big.Rat:
		return x.FloatString(2)
	case civil.Date:
		return x.String()
	case time.Time:
		return x.UTC().Format("2006-01-02")
	default:
		return fmt.Sprint(x)
	}
}
