// Package importer parses broker-report CSV exports into typed records.
package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/interfaces"
	"github.com/ivstorm/folio/internal/models"
)

// Compile-time interface check
var _ interfaces.RecordImporter = (*Importer)(nil)

// Importer reads the three broker-report sheets exported as CSV.
// Report rows come newest-first; records are returned oldest-first.
type Importer struct {
	logger *common.Logger
}

// NewImporter creates a CSV record importer.
func NewImporter(logger *common.Logger) *Importer {
	return &Importer{logger: logger}
}

// Deals parses the trades sheet.
func (im *Importer) Deals(path string) ([]models.Deal, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, fmt.Errorf("deals %s: %w", path, err)
	}

	deals := make([]models.Deal, 0, len(rows))
	for _, row := range rows {
		deal, err := parseDeal(row)
		if err != nil {
			return nil, fmt.Errorf("deals %s: %w", path, err)
		}
		deals = append(deals, deal)
	}

	reverse(deals)
	im.logger.Info().Str("path", path).Int("count", len(deals)).Msg("Imported deals")
	return deals, nil
}

// Operations parses the cash-ledger sheet.
func (im *Importer) Operations(path string) ([]models.Operation, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, fmt.Errorf("operations %s: %w", path, err)
	}

	operations := make([]models.Operation, 0, len(rows))
	for _, row := range rows {
		op, err := parseOperation(row)
		if err != nil {
			return nil, fmt.Errorf("operations %s: %w", path, err)
		}
		operations = append(operations, op)
	}

	reverse(operations)
	im.logger.Info().Str("path", path).Int("count", len(operations)).Msg("Imported operations")
	return operations, nil
}

// Payments parses the hand-maintained payout sheet.
func (im *Importer) Payments(path string) ([]models.Payment, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, fmt.Errorf("payments %s: %w", path, err)
	}

	payments := make([]models.Payment, 0, len(rows))
	for _, row := range rows {
		payment, err := parsePayment(row)
		if err != nil {
			return nil, fmt.Errorf("payments %s: %w", path, err)
		}
		payments = append(payments, payment)
	}

	reverse(payments)
	im.logger.Info().Str("path", path).Int("count", len(payments)).Msg("Imported payments")
	return payments, nil
}

func parseDeal(row sheetRow) (models.Deal, error) {
	side, err := models.ParseDealSide(row.get("Операция"))
	if err != nil {
		return models.Deal{}, err
	}
	secType, err := models.ParseSecurityType(row.get("Тип финансового инструмента"))
	if err != nil {
		return models.Deal{}, err
	}
	date, err := parseReportDate(row.get("Дата заключения"))
	if err != nil {
		return models.Deal{}, err
	}
	settlement, err := parseReportDate(row.get("Дата расчётов"))
	if err != nil {
		return models.Deal{}, err
	}

	deal := models.Deal{
		Contract:       row.get("Номер договора"),
		DealID:         row.get("Номер сделки"),
		Date:           date,
		SettlementDate: settlement,
		SecID:          row.get("Код финансового инструмента"),
		SecurityType:   secType,
		Market:         row.get("Тип рынка"),
		Side:           side,
		Currency:       row.get("Валюта"),
		DealType:       row.get("Тип сделки"),
	}

	numeric := []struct {
		column string
		dst    *float64
	}{
		{"Количество", &deal.Quantity},
		{"Цена", &deal.Price},
		{"НКД", &deal.AccruedInterest},
		{"Объём сделки", &deal.Volume},
		{"Курс", &deal.Rate},
		{"Комиссия торговой системы", &deal.TradingSystemCommission},
		{"Комиссия банка", &deal.BrokerCommission},
		{"Сумма зачисления/списания", &deal.Income},
	}
	for _, field := range numeric {
		v, err := parseNumber(row.get(field.column))
		if err != nil {
			return models.Deal{}, fmt.Errorf("column %q: %w", field.column, err)
		}
		*field.dst = v
	}

	if deal.Side == models.SideSell {
		deal.Quantity = -deal.Quantity
	}

	return deal, nil
}

func parseOperation(row sheetRow) (models.Operation, error) {
	category, err := models.ParseOperationCategory(row.get("Операция"))
	if err != nil {
		return models.Operation{}, err
	}
	date, err := parseReportDate(row.get("Дата исполнения поручения"))
	if err != nil {
		return models.Operation{}, err
	}
	volume, err := parseNumber(row.get("Сумма"))
	if err != nil {
		return models.Operation{}, fmt.Errorf("column %q: %w", "Сумма", err)
	}

	return models.Operation{
		Contract:     row.get("Номер договора"),
		Date:         date,
		Category:     category,
		Volume:       volume,
		Currency:     row.get("Валюта операции"),
		Description:  row.get("Содержание операции"),
		FromContract: row.get("Номер договора списания"),
		ToContract:   row.get("Номер договора зачисления"),
	}, nil
}

func parsePayment(row sheetRow) (models.Payment, error) {
	date, err := parseReportDate(row.get("Дата"))
	if err != nil {
		return models.Payment{}, err
	}
	quantity, err := parseNumber(row.get("Кол-во"))
	if err != nil {
		return models.Payment{}, fmt.Errorf("column %q: %w", "Кол-во", err)
	}
	gross, err := parseNumber(row.get("Купон/дивиденд"))
	if err != nil {
		return models.Payment{}, fmt.Errorf("column %q: %w", "Купон/дивиденд", err)
	}
	actually, err := parseNumber(row.get("Фактически"))
	if err != nil {
		return models.Payment{}, fmt.Errorf("column %q: %w", "Фактически", err)
	}

	return models.Payment{
		SecID:    row.get("Код инструмента"),
		Date:     date,
		Quantity: quantity,
		Gross:    gross,
		Actually: actually,
	}, nil
}

var reportDateLayouts = []string{
	"02.01.2006 15:04",
	"02.01.2006",
	"02/01/2006 15:04",
	"02/01/2006",
}

// parseReportDate accepts the day-first formats the reports use. The
// time of day is dropped: valuations only ever compare whole dates.
func parseReportDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date %q", value)
}

// parseNumber parses a report numeric cell. Empty cells mean zero, and
// some exports use a comma decimal separator.
func parseNumber(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, ",", ".")
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", value)
	}
	return v, nil
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

// sheetRow is one CSV record indexed by header name.
type sheetRow struct {
	header map[string]int
	fields []string
}

func (r sheetRow) get(column string) string {
	idx, ok := r.header[column]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return r.fields[idx]
}

// readSheet loads a CSV file and returns its data rows keyed by the
// header row.
func readSheet(path string) ([]sheetRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty sheet")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))] = i
	}

	rows := make([]sheetRow, 0, len(records)-1)
	for _, fields := range records[1:] {
		if isBlank(fields) {
			continue
		}
		rows = append(rows, sheetRow{header: header, fields: fields})
	}
	return rows, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
