package ledger

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/finance-dashboard/internal/logger"
)

// Source fetches the raw ledger table from somewhere.
type Source interface {
	// Name identifies the source in errors and logs.
	Name() string
	// Fetch returns the raw table.
	Fetch(ctx context.Context) (*Table, error)
}

// Load fetches a table from src and converts it into a Ledger.
func Load(ctx context.Context, src Source) (*Ledger, error) {
	log := logger.FromContext(ctx)

	t, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("Load: fetching %s: %w", src.Name(), err)
	}

	l, err := FromTable(src.Name(), t)
	if err != nil {
		return nil, err
	}

	first, last, _ := l.DateRange()
	log.Debug().
		Str("source", src.Name()).
		Int("transactions", l.Len()).
		Str("first_date", first.String()).
		Str("last_date", last.String()).
		Msg("Ledger loaded")

	return l, nil
}

// FileSource reads a CSV file from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Fetch(ctx context.Context) (*Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open file %q: %w", s.Path, err)
	}
	defer f.Close()

	return ParseCSV(f)
}

// SourceFromURI picks a source implementation from the URI scheme:
// gs://bucket/object, bq://project.dataset.table, or a local path.
func SourceFromURI(uri string) (Source, error) {
	switch {
	case uri == "":
		return nil, fmt.Errorf("SourceFromURI: empty data source")
	case strings.HasPrefix(uri, "gs://"):
		if _, _, err := parseGCSURI(uri); err != nil {
			return nil, err
		}
		return &GCSSource{URI: uri}, nil
	case strings.HasPrefix(uri, "bq://"):
		return ParseBigQueryURI(uri)
	default:
		return FileSource{Path: uri}, nil
	}
}
