package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// Header is the first row of the export sheet. Column A holds the
// transaction id used to find a row again.
var Header = []string{
	"transaction_id", "user_id", "account_id", "date", "description",
	"category", "type", "value", "status", "installment",
}

// Columns is the A1 column span of a row.
const Columns = "A:J"

// lastColumn is the letter of the final header column.
const lastColumn = "J"

// Values returns the row as spreadsheet cell values.
func (r Row) Values() []any {
	return []any{
		string(r.TransactionID),
		string(r.UserID),
		string(r.AccountID),
		r.Date.String(),
		r.Description,
		r.Category,
		string(r.Type),
		r.Value.String(),
		string(r.Status),
		r.Installment,
	}
}

// ParseRow reads cell values back into a Row. Short rows are padded, so a
// cleared or partial row decodes with empty fields.
func ParseRow(cells []string) (Row, error) {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}
	r := Row{
		TransactionID: core.ID(get(0)),
		UserID:        core.ID(get(1)),
		AccountID:     core.ID(get(2)),
		Description:   get(4),
		Category:      get(5),
		Type:          core.TransactionType(get(6)),
		Status:        core.TransactionStatus(get(8)),
		Installment:   get(9),
	}
	if d := get(3); d != "" {
		date, err := core.ParseDate(d)
		if err != nil {
			return Row{}, fmt.Errorf("row %s: %w", r.TransactionID, err)
		}
		r.Date = date
	}
	if v := get(7); v != "" {
		m, err := core.ParseMoney(v)
		if err != nil {
			return Row{}, fmt.Errorf("row %s: %w", r.TransactionID, err)
		}
		r.Value = m
	}
	return r, nil
}

// FindRow returns the 1-based sheet row whose first cell is id, or 0.
func FindRow(column [][]string, id core.ID) int {
	for i, cells := range column {
		if len(cells) > 0 && strings.TrimSpace(cells[0]) == string(id) {
			return i + 1
		}
	}
	return 0
}

// RowsOfUserYear returns the 1-based rows of userID dated in year. The
// header row never matches.
func RowsOfUserYear(values [][]string, userID core.ID, year int) []int {
	prefix := strconv.Itoa(year) + "-"
	var out []int
	for i, cells := range values {
		if len(cells) < 4 {
			continue
		}
		if strings.TrimSpace(cells[1]) == string(userID) && strings.HasPrefix(strings.TrimSpace(cells[3]), prefix) {
			out = append(out, i+1)
		}
	}
	return out
}

// RowRange returns the A1 range covering row n of sheet.
func RowRange(sheet string, n int) string {
	return fmt.Sprintf("%s!A%d:%s%d", QuoteSheet(sheet), n, lastColumn, n)
}

// QuoteSheet quotes a sheet name for A1 notation.
func QuoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// ToStrings converts Sheets API cells to trimmed strings.
func ToStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func formatInstallment(i core.Installment) string {
	return fmt.Sprintf("%d/%d", i.Current, i.Total)
}
