package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"fintrack/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var errMalformedBody = fmt.Errorf("%w: malformed JSON body", core.ErrValidation)

// decodeJSON reads one JSON value from the request body into v. Errors are
// reported as validation failures; domain decoding errors (amounts, dates)
// keep their own message.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return err
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: request body too large", core.ErrValidation)
		}
		return errMalformedBody
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errMalformedBody
	}
	return nil
}

// pathID parses the {name} route variable as an identifier.
func pathID(r *http.Request, name string) (core.ID, error) {
	return core.ParseID(mux.Vars(r)[name])
}

// queryID parses an optional identifier query parameter.
func queryID(q url.Values, key string) (core.ID, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return "", nil
	}
	return core.ParseID(v)
}

// queryInt parses an optional integer query parameter, returning def when
// it is absent.
func queryInt(q url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", core.ErrValidation, key)
	}
	return n, nil
}

// requiredInt parses a mandatory integer parameter.
func requiredInt(q url.Values, key string) (int, error) {
	if strings.TrimSpace(q.Get(key)) == "" {
		return 0, fmt.Errorf("%w: %s is required", core.ErrValidation, key)
	}
	return queryInt(q, key, 0)
}

// parseYearMonth extracts the mandatory year and month query parameters.
func parseYearMonth(q url.Values) (year, month int, err error) {
	if year, err = requiredInt(q, "year"); err != nil {
		return 0, 0, err
	}
	if month, err = requiredInt(q, "month"); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(q url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w (%s)", err, key)
	}
	return d, nil
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
