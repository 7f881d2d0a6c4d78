// Package parser turns nutrition-tracker CSV exports into Records.
//
// Each CSV row holds a user identifier, a date and one or more cells of
// loosely structured nutrition text. The text cells are joined into one blob
// and run through a fallback chain of extraction strategies. A row whose
// extraction fails is kept with all nutrients absent; only file-level
// problems (empty input, too few columns, unparseable dates or user
// identifiers, malformed CSV) fail the whole parse.
package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/logger"
)

// MinColumns is the narrowest accepted row: user id, date, one nutrition cell.
const MinColumns = 3

// User-facing validation messages
const (
	MsgEmptyFile     = "The uploaded CSV file is empty."
	MsgTooFewColumns = "CSV does not have enough columns. Expected at least 3 columns."
	MsgBadDate       = "Could not parse date column. Please check the date format."
	MsgBadUserID     = "Could not parse user_id column. User identifiers must be integers."
)

// Parser extracts records from CSV input. The zero value is not usable; use New.
type Parser struct {
	header bool
	chain  Chain
	log    logger.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithHeader makes the parser skip the first row.
func WithHeader(header bool) Option {
	return func(p *Parser) { p.header = header }
}

// WithLogger sets the logger used for row-level diagnostics.
func WithLogger(log logger.Logger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// WithChain replaces the extraction strategy chain.
func WithChain(chain Chain) Option {
	return func(p *Parser) { p.chain = chain }
}

// New creates a Parser. Without options it treats every row as data and
// uses DefaultChain.
func New(opts ...Option) *Parser {
	p := &Parser{chain: DefaultChain()}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Global().Module("parser")
	}
	return p
}

// Parse is shorthand for New(opts...).Parse(r).
func Parse(r io.Reader, opts ...Option) (*Batch, error) {
	return New(opts...).Parse(r)
}

// Parse reads the whole CSV and returns one record per data row, in order.
func (p *Parser) Parse(r io.Reader) (*Batch, error) {
	rows, err := p.readRows(r)
	if err != nil {
		return nil, err
	}

	dates := detectDateLayout(firstNonEmptyDate(rows))
	batch := &Batch{
		Records: make([]Record, 0, len(rows)),
		Columns: NewColumnSet(ExtractedColumns...),
	}

	for i, row := range rows {
		rec, err := p.parseKeys(i, row, dates)
		if err != nil {
			return nil, err
		}

		nutrients, degraded := p.extractRow(i, joinBlob(row))
		if degraded {
			batch.Degraded++
		}
		rec.setNutrients(nutrients)
		batch.Records = append(batch.Records, rec)
	}

	p.log.Info("CSV parsed",
		logger.Int("records", len(batch.Records)),
		logger.Int("degraded_rows", batch.Degraded),
		logger.Any("columns", batch.Columns.Sorted()),
		logger.String("date_layout", dates.layout))
	return batch, nil
}

// readRows returns the data rows, with a leading BOM stripped and widths checked.
func (p *Parser) readRows(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	if err != nil {
		return nil, errors.New(err).
			Component("parser").
			Category(errors.CategoryFileIO).
			Context("operation", "read_csv").
			Build()
	}

	all, err := readCSV(data, false)
	if errors.Is(err, csv.ErrBareQuote) {
		// JSON fragments in unquoted cells carry literal quotes
		p.log.Debug("bare quotes in CSV, reading quotes literally")
		all, err = readCSV(data, true)
	}
	if err != nil {
		return nil, validationError(fmt.Errorf("Invalid CSV format: %w", err), "", -1)
	}
	if len(all) == 0 {
		return nil, validationError(errors.NewStd(MsgEmptyFile), "", -1)
	}

	width := len(all[0])
	if width < MinColumns {
		return nil, validationError(errors.NewStd(MsgTooFewColumns), "", -1)
	}
	for i, row := range all[1:] {
		if len(row) > width {
			return nil, validationError(
				fmt.Errorf("Invalid CSV format: unequal row widths, row %d has %d fields, expected at most %d", i+2, len(row), width), "", -1)
		}
	}

	if p.header {
		all = all[1:]
	}
	if len(all) == 0 {
		return nil, validationError(errors.NewStd(MsgEmptyFile), "", -1)
	}
	return all, nil
}

func (p *Parser) parseKeys(i int, row []string, dates dateParser) (Record, error) {
	var rec Record

	userID, ok := parseUserID(cell(row, 0))
	if !ok {
		return rec, validationError(errors.NewStd(MsgBadUserID), ColUserID, i)
	}
	rec.UserID = userID

	date, fellBack, ok := dates.parse(cell(row, 1))
	if !ok {
		return rec, validationError(errors.NewStd(MsgBadDate), ColDate, i)
	}
	if fellBack {
		p.log.Warn("date did not match detected layout, used flexible parsing",
			logger.Int("row", i),
			logger.String("layout", dates.layout))
	}
	rec.Date = date
	return rec, nil
}

// extractRow runs the strategy chain. Any failure, including a panic,
// degrades the row to all-absent nutrients.
func (p *Parser) extractRow(i int, blob string) (n Nutrients, degraded bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("nutrition extraction panicked, row kept without nutrients",
				logger.Int("row", i),
				logger.Any("panic", r))
			n, degraded = Nutrients{}, true
		}
	}()

	n, err := p.chain.Run(blob)
	if err != nil {
		p.log.Warn("nutrition extraction failed, row kept without nutrients",
			logger.Int("row", i),
			logger.Error(err))
		return Nutrients{}, true
	}
	return n, false
}

// joinBlob concatenates cells 2..n, skipping empty ones, and converts
// single quotes to double quotes so both quoting styles match.
// readCSV parses data as variable-width CSV. With lazy set, a quote inside an
// unquoted field is kept as a literal character.
func readCSV(data []byte, lazy bool) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = lazy
	return reader.ReadAll()
}

func joinBlob(row []string) string {
	var b strings.Builder
	for _, c := range row[min(len(row), 2):] {
		if c == "" {
			continue
		}
		b.WriteString(c)
	}
	return strings.ReplaceAll(b.String(), "'", `"`)
}

func firstNonEmptyDate(rows [][]string) string {
	for _, row := range rows {
		if d := strings.TrimSpace(cell(row, 1)); d != "" {
			return d
		}
	}
	return ""
}

// parseUserID accepts integers and integral floats such as "7.0".
func parseUserID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// validationError marks err as client-correctable. A negative row is omitted.
func validationError(err error, column Column, row int) error {
	b := errors.New(err).
		Component("parser").
		Category(errors.CategoryValidation)
	if column != "" {
		b = b.Context("column", string(column))
	}
	if row >= 0 {
		b = b.Context("row", row)
	}
	return b.Build()
}
