// Package importer loads country reference data from CSV.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type CountryStore interface {
	Insert(ctx context.Context, name, isoCode string) (bool, error)
}

type Stats struct {
	Inserted int
	Existing int
	Invalid  int
	Failed   int
}

type CountryImporter struct {
	countries CountryStore
	logger    *slog.Logger
}

func NewCountryImporter(countries CountryStore, logger *slog.Logger) *CountryImporter {
	return &CountryImporter{
		countries: countries,
		logger:    logger.With("component", "importer"),
	}
}

// Import reads "name;ISO" rows. Rows without exactly two fields and rows
// that fail to insert are logged and skipped.
func (i *CountryImporter) Import(ctx context.Context, r io.Reader) (*Stats, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	stats := &Stats{}
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			stats.Invalid++
			i.logger.Warn("invalid csv row", "line", line, "error", err)
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("read csv: %w", err)
		}

		if len(row) != 2 {
			stats.Invalid++
			i.logger.Warn("invalid csv row", "line", line, "fields", len(row))
			continue
		}

		name := strings.TrimSpace(strings.TrimPrefix(row[0], "\ufeff"))
		isoCode := strings.ToUpper(strings.TrimSpace(row[1]))
		if name == "" || isoCode == "" {
			stats.Invalid++
			i.logger.Warn("invalid csv row", "line", line, "row", row)
			continue
		}

		inserted, err := i.countries.Insert(ctx, name, isoCode)
		switch {
		case err != nil:
			stats.Failed++
			i.logger.Error("failed to insert country", "name", name, "iso_code", isoCode, "error", err)
		case inserted:
			stats.Inserted++
			i.logger.Debug("country inserted", "name", name, "iso_code", isoCode)
		default:
			stats.Existing++
		}
	}

	i.logger.Info("country import completed",
		"inserted", stats.Inserted,
		"existing", stats.Existing,
		"invalid", stats.Invalid,
		"failed", stats.Failed,
	)

	return stats, nil
}
