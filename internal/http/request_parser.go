// Package http serves the ledger as a JSON and CSV API.
//
// This file parses query strings and request bodies into domain inputs.

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

	"github.com/shopspring/decimal"

	"spendlog/internal/core"
	"spendlog/internal/filter"
)

const (
	maxBodyBytes = 64 << 10
	maxBins      = 200
)

// ErrBadRequest marks malformed query parameters or bodies. Handlers map
// it to 400.
var ErrBadRequest = errors.New("bad request")

// ParamError names the offending parameter.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Param, e.Value, e.Err)
}

func (e *ParamError) Unwrap() []error { return []error{ErrBadRequest, e.Err} }

// ParseFilterSpec reads category, start, end, min and max. Missing or
// empty parameters leave that dimension unconstrained.
func ParseFilterSpec(q url.Values) (filter.Spec, error) {
	spec := filter.Spec{Category: core.NormalizeCategory(q.Get("category"))}
	if spec.Category == "" {
		spec.Category = core.AllCategories
	}

	var err error
	if spec.Start, err = optionalDate(q, "start"); err != nil {
		return filter.Spec{}, err
	}
	if spec.End, err = optionalDate(q, "end"); err != nil {
		return filter.Spec{}, err
	}
	if spec.Min, err = optionalAmount(q, "min"); err != nil {
		return filter.Spec{}, err
	}
	if spec.Max, err = optionalAmount(q, "max"); err != nil {
		return filter.Spec{}, err
	}
	return spec, nil
}

func optionalDate(q url.Values, param string) (*core.Date, error) {
	v := strings.TrimSpace(q.Get(param))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, &ParamError{Param: param, Value: v, Err: err}
	}
	return &d, nil
}

func optionalAmount(q url.Values, param string) (*decimal.Decimal, error) {
	v := strings.TrimSpace(q.Get(param))
	if v == "" {
		return nil, nil
	}
	a, err := core.ParseAmount(v)
	if err != nil {
		return nil, &ParamError{Param: param, Value: v, Err: err}
	}
	return &a, nil
}

// ParseSort reads sort=date|asc or sort=-date|desc. An empty value keeps
// ledger order.
func ParseSort(q url.Values) (sorted, desc bool, err error) {
	switch v := strings.ToLower(strings.TrimSpace(q.Get("sort"))); v {
	case "":
		return false, false, nil
	case "asc", "date":
		return true, false, nil
	case "desc", "-date":
		return true, true, nil
	default:
		return false, false, &ParamError{Param: "sort", Value: v, Err: errors.New("expected date or -date")}
	}
}

// ParseBins reads bins, falling back to def.
func ParseBins(q url.Values, def int) (int, error) {
	v := strings.TrimSpace(q.Get("bins"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ParamError{Param: "bins", Value: v, Err: err}
	}
	if n < 1 || n > maxBins {
		return 0, &ParamError{Param: "bins", Value: v, Err: fmt.Errorf("must be between 1 and %d", maxBins)}
	}
	return n, nil
}

// ParseGroup reads group=category|month, defaulting to category.
func ParseGroup(q url.Values) (core.GroupKind, error) {
	switch v := strings.ToLower(strings.TrimSpace(q.Get("group"))); v {
	case "", string(core.GroupByCategory):
		return core.GroupByCategory, nil
	case string(core.GroupByMonth):
		return core.GroupByMonth, nil
	default:
		return "", &ParamError{Param: "group", Value: v, Err: errors.New("expected category or month")}
	}
}

// RequestBodyParser reads a JSON or form-encoded body once.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like JSON, and as a form
// otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: decode json: %v", ErrBadRequest, err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: decode form: %v", ErrBadRequest, p.err)
	}
	return p.err
}

// Get returns a sanitized field value from JSON or form data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// stringValue renders JSON scalars as the strings a form would carry.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseTransactionInput reads date, amount, category and description.
// Values are not validated here.
func ParseTransactionInput(r *http.Request) (core.TransactionInput, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.TransactionInput{}, err
	}
	return core.TransactionInput{
		Date:        p.Get("date"),
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Description: p.Get("description"),
	}, nil
}
