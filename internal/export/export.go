// Package export renders views and aggregates as CSV tables for download.
// Inputs are assumed valid; nothing is re-validated here.
package export

import (
	"bytes"
	"io"
	"strconv"

	"spendlog/internal/core"
	"spendlog/internal/tabular"
)

// Report column names.
const (
	ColumnMonth   = "Month"
	ColumnTotal   = "Total"
	ColumnAverage = "Average"
	ColumnCount   = "Count"
)

// CategoryStatsHeader is the header of the category report.
var CategoryStatsHeader = []string{tabular.ColumnCategory, ColumnTotal, ColumnAverage, ColumnCount}

// WriteTable writes the view in the ledger file format.
func WriteTable(w io.Writer, view core.View) error {
	return tabular.Encode(w, view)
}

// ToTable returns the view in the ledger file format. The output loads
// back through the ledger store unchanged.
func ToTable(view core.View) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BreakdownHeader names the key column after the breakdown's dimension.
func BreakdownHeader(b core.Breakdown) []string {
	if b.Kind == core.GroupByMonth {
		return []string{ColumnMonth, ColumnTotal}
	}
	return []string{tabular.ColumnCategory, ColumnTotal}
}

// BreakdownRows returns one row per group, in breakdown order.
func BreakdownRows(b core.Breakdown) [][]string {
	rows := make([][]string, len(b.Groups))
	for i, g := range b.Groups {
		rows[i] = []string{g.Key, core.FormatAmount(g.Total)}
	}
	return rows
}

// WriteCategorySummaryTable writes a two-column key/total table.
func WriteCategorySummaryTable(w io.Writer, b core.Breakdown) error {
	return tabular.WriteRows(w, BreakdownHeader(b), BreakdownRows(b))
}

func ToCategorySummaryTable(b core.Breakdown) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCategorySummaryTable(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CategoryStatsRows returns report rows in the order given.
func CategoryStatsRows(stats []core.CategoryStats) [][]string {
	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = []string{s.Category, core.FormatAmount(s.Total), core.FormatAmount(s.Average), strconv.Itoa(s.Count)}
	}
	return rows
}

// WriteCategoryStatsTable writes the Category,Total,Average,Count report.
func WriteCategoryStatsTable(w io.Writer, stats []core.CategoryStats) error {
	return tabular.WriteRows(w, CategoryStatsHeader, CategoryStatsRows(stats))
}

func ToCategoryStatsTable(stats []core.CategoryStats) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCategoryStatsTable(&buf, stats); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
