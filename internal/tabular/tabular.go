// Package tabular implements the ledger's flat-file format:
//
//	Date,Amount,Category,Description
//	2024-06-04,1794.09,Shopping,Shoes
//
// Fields are quoted per RFC 4180. The header row is mandatory and must
// match Header exactly.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"spendlog/internal/core"
)

// Column names in their fixed order.
const (
	ColumnDate        = "Date"
	ColumnAmount      = "Amount"
	ColumnCategory    = "Category"
	ColumnDescription = "Description"
)

// Header is the mandatory first row of every ledger file.
var Header = []string{ColumnDate, ColumnAmount, ColumnCategory, ColumnDescription}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row renders a transaction as a record in Header order.
func Row(t core.Transaction) []string {
	return []string{t.Date.String(), core.FormatAmount(t.Amount), t.Category, t.Description}
}

// WriteRows writes a header and records as CSV.
func WriteRows(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// Encode writes transactions in the ledger format.
func Encode(w io.Writer, txs []core.Transaction) error {
	rows := make([][]string, len(txs))
	for i, t := range txs {
		rows[i] = Row(t)
	}
	return WriteRows(w, Header, rows)
}

// Decode reads a ledger file. Any row that fails to parse aborts decoding
// with a *core.MalformedStoreError naming the row and column.
func Decode(r io.Reader) ([]core.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &core.MalformedStoreError{Row: 1, Column: "header", Err: core.ErrBadHeader}
	}
	if err != nil {
		return nil, malformedFromCSV(err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var txs []core.Transaction
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformedFromCSV(err)
		}
		tx, err := decodeRecord(cr, rec)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func checkHeader(header []string) error {
	for i, want := range Header {
		if i >= len(header) {
			return &core.MalformedStoreError{Row: 1, Column: want, Err: core.ErrMissingColumn}
		}
		if header[i] != want {
			return &core.MalformedStoreError{Row: 1, Column: want, Value: header[i], Err: core.ErrBadHeader}
		}
	}
	if len(header) > len(Header) {
		return &core.MalformedStoreError{Row: 1, Column: "header", Value: header[len(Header)], Err: core.ErrBadHeader}
	}
	return nil
}

// decodeRecord reports errors against the file line where the offending
// field starts, so blank lines and multi-line quoted fields do not shift it.
func decodeRecord(cr *csv.Reader, rec []string) (core.Transaction, error) {
	line := func(field int) int {
		l, _ := cr.FieldPos(field)
		return l
	}
	if len(rec) != len(Header) {
		col := "record"
		if len(rec) < len(Header) {
			col = Header[len(rec)]
		}
		return core.Transaction{}, &core.MalformedStoreError{
			Row:    line(0),
			Column: col,
			Err:    fmt.Errorf("%w: expected %d fields, got %d", core.ErrMissingColumn, len(Header), len(rec)),
		}
	}
	date, err := core.ParseDate(rec[0])
	if err != nil {
		return core.Transaction{}, &core.MalformedStoreError{Row: line(0), Column: ColumnDate, Value: rec[0], Err: err}
	}
	amount, err := core.ParseAmount(rec[1])
	if err != nil {
		return core.Transaction{}, &core.MalformedStoreError{Row: line(1), Column: ColumnAmount, Value: rec[1], Err: err}
	}
	return core.Transaction{
		Date:        date,
		Amount:      amount,
		Category:    rec[2],
		Description: rec[3],
	}, nil
}

func malformedFromCSV(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &core.MalformedStoreError{Row: perr.StartLine, Err: perr.Err}
	}
	return fmt.Errorf("read ledger: %w", err)
}
