package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var rowRangeRe = regexp.MustCompile(`!A(\d+):J(\d+)$`)

// fakeSheets is a minimal in-memory stand-in for the Sheets values API.
type fakeSheets struct {
	mu   sync.Mutex
	rows map[int][]string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, "values:batchClear"):
		var req gsheet.BatchClearValuesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rng := range req.Ranges {
			delete(f.rows, rowOf(rng))
		}
		writeJSON(w, map[string]any{"clearedRanges": req.Ranges})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		rng := strings.TrimSuffix(rangeOf(path), ":clear")
		delete(f.rows, rowOf(rng))
		writeJSON(w, map[string]any{"clearedRange": rng})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.rows[rowOf(rangeOf(path))] = ports.ToStrings(vr.Values[0])
		writeJSON(w, map[string]any{"updatedRows": 1})
	case r.Method == http.MethodGet:
		onlyIDs := strings.HasSuffix(rangeOf(path), "!A:A")
		last := 0
		for n := range f.rows {
			if n > last {
				last = n
			}
		}
		values := make([][]any, last)
		for n := 1; n <= last; n++ {
			cells := f.rows[n]
			if onlyIDs && len(cells) > 1 {
				cells = cells[:1]
			}
			row := make([]any, len(cells))
			for i, c := range cells {
				row[i] = c
			}
			values[n-1] = row
		}
		writeJSON(w, map[string]any{"majorDimension": "ROWS", "values": values})
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotImplemented)
	}
}

func rangeOf(path string) string {
	i := strings.Index(path, "/values/")
	if i < 0 {
		return ""
	}
	return path[i+len("/values/"):]
}

func rowOf(rng string) int {
	m := rowRangeRe.FindStringSubmatch(rng)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{rows: map[int][]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	c, err := New(svc, "sheet-id", "Transactions")
	require.NoError(t, err)
	return c, fake
}

func row(id, user core.ID, date string) ports.Row {
	d, _ := core.ParseDate(date)
	return ports.Row{
		TransactionID: id,
		UserID:        user,
		AccountID:     "acc",
		Date:          d,
		Description:   "Mercado",
		Category:      "Alimentação",
		Type:          core.Expense,
		Value:         core.Money{Cents: 12050},
		Status:        core.Paid,
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "id", "s")
	assert.Error(t, err)

	svc := &gsheet.Service{}
	_, err = New(svc, " ", "s")
	assert.Error(t, err)

	c, err := New(svc, "id", "")
	require.NoError(t, err)
	assert.Equal(t, "Transactions", c.sheet)
}

func TestUpsert_WritesHeaderThenAppendsAndOverwrites(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	ref, err := c.Upsert(ctx, row("t1", "u1", "2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, "'Transactions'!A2:J2", ref)
	assert.Equal(t, ports.Header, fake.rows[1])
	assert.Equal(t, "120.50", fake.rows[2][7])

	ref, err = c.Upsert(ctx, row("t2", "u1", "2024-01-06"))
	require.NoError(t, err)
	assert.Equal(t, "'Transactions'!A3:J3", ref)

	updated := row("t1", "u1", "2024-01-05")
	updated.Description = "Feira"
	ref, err = c.Upsert(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, "'Transactions'!A2:J2", ref)
	assert.Equal(t, "Feira", fake.rows[2][4])
	assert.Len(t, fake.rows, 3)
}

func TestUpsert_RequiresID(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.Upsert(context.Background(), ports.Row{})
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)
	_, err := c.Upsert(ctx, row("t1", "u1", "2024-01-05"))
	require.NoError(t, err)
	_, err = c.Upsert(ctx, row("t2", "u1", "2024-01-06"))
	require.NoError(t, err)

	require.NoError(t, c.Clear(ctx, "t1"))
	_, ok := fake.rows[2]
	assert.False(t, ok)
	assert.Equal(t, "t2", fake.rows[3][0])

	// clearing an unknown id is a no-op
	assert.NoError(t, c.Clear(ctx, "missing"))

	// a cleared row keeps its slot; new ids append after the last row
	ref, err := c.Upsert(ctx, row("t3", "u1", "2024-01-07"))
	require.NoError(t, err)
	assert.Equal(t, "'Transactions'!A4:J4", ref)
}

func TestClearUserYear(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)
	for i, r := range []ports.Row{
		row("a", "u1", "2024-01-05"),
		row("b", "u1", "2023-12-31"),
		row("c", "u2", "2024-02-01"),
		row("d", "u1", "2024-12-31"),
	} {
		_, err := c.Upsert(ctx, r)
		require.NoError(t, err, fmt.Sprint("row ", i))
	}

	n, err := c.ClearUserYear(ctx, "u1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var left []string
	for i := 2; i <= 5; i++ {
		if cells, ok := fake.rows[i]; ok {
			left = append(left, cells[0])
		}
	}
	assert.Equal(t, []string{"b", "c"}, left)

	n, err = c.ClearUserYear(ctx, "nobody", 2024)
	require.NoError(t, err)
	assert.Zero(t, n)
}
