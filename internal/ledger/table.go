package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Column names of the source spreadsheet.
const (
	ColCode      = "Codigo"
	ColName      = "Nome"
	ColDate      = "Data"
	ColCategory  = "Categoria"
	ColKind      = "Tipo"
	ColPaid      = "Pago_ou_nao_pago"
	ColCostClass = "Custo_Fixo_x_Variavel"
	ColAmount    = "Valor"
	ColProfit    = "Lucro"
	ColBalance   = "Saldo"
)

// MandatoryColumns must be present in every source.
var MandatoryColumns = []string{ColDate, ColCategory, ColKind, ColAmount}

// Table is the raw, untyped content of a ledger source.
type Table struct {
	Header []string
	Rows   []Row
}

// Row is one record with the source line it came from.
type Row struct {
	Line  int
	Cells []string
}

// columnIndex maps header names (case-insensitive) to positions.
func (t *Table) columnIndex() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a comma or semicolon separated ledger export.
// The delimiter is picked from the header line.
func ParseCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ParseCSV: reading input: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ParseCSV: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("ParseCSV: reading header: %w", err)
	}

	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ParseCSV: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		t.Rows = append(t.Rows, Row{Line: line, Cells: rec})
	}

	return t, nil
}

func sniffDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
