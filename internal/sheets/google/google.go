// Package google exports report tables to a Google Sheets spreadsheet using
// service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/log"
	"fintrack/internal/report"
	ports "fintrack/internal/sheets"
)

var _ ports.TableWriter = (*Exporter)(nil)

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
	// YearPrefix names sheets "<year> <name>" the way yearly workbooks do.
	YearPrefix bool
	Year       int
}

// valuesAPI is the slice of the Sheets values service the exporter uses.
type valuesAPI interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (int64, error)
}

type Exporter struct {
	values        valuesAPI
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// NewExporter connects to the Sheets API. Credentials come from the config,
// falling back to GOOGLE_APPLICATION_CREDENTIALS.
func NewExporter(ctx context.Context, cfg Config, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newExporter(serviceValues{svc: svc}, cfg, logger), nil
}

func newExporter(values valuesAPI, cfg Config, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Nop()
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = "Expenses"
	}
	if cfg.YearPrefix {
		name = yearPrefixedName(name, cfg.Year)
	}
	return &Exporter{
		values:        values,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     name,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// SheetName is the sheet written when WriteTable is given an empty name.
func (e *Exporter) SheetName() string { return e.sheetName }

// WriteTable clears sheet and writes header and rows from A1.
func (e *Exporter) WriteTable(ctx context.Context, sheet string, header []string, rows iter.Seq[report.Row]) (int, error) {
	if sheet == "" {
		sheet = e.sheetName
	}
	values, n := toValues(header, rows)

	if err := e.values.Clear(ctx, e.spreadsheetID, sheetRange(sheet, "A:Z")); err != nil {
		return 0, fmt.Errorf("clear sheet %s: %w", sheet, err)
	}
	updated, err := e.values.Update(ctx, e.spreadsheetID, sheetRange(sheet, "A1"), values)
	if err != nil {
		return 0, fmt.Errorf("write sheet %s: %w", sheet, err)
	}

	e.logger.InfoContext(ctx, "Exported table to sheet",
		log.FieldOperation, log.OpExport,
		"sheet", sheet,
		log.FieldCount, n,
		"updated_rows", updated)
	return n, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// serviceValues adapts *gsheet.Service to valuesAPI.
type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) (int64, error) {
	resp, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	return resp.UpdatedRows, nil
}
