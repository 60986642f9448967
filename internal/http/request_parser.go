// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// dashboard filters from query strings and transactions from form or JSON
// bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// maxBodyBytes caps request bodies read by RequestBodyParser.
const maxBodyBytes = 64 << 10

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int // 0 means the whole year
}

// ParseMonthParams extracts year and month from query parameters, defaulting
// to now. month=all or month=0 selects every month; other values outside
// 1-12 are errors.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return MonthParams{}, fmt.Errorf("invalid year %q", v)
		}
		params.Year = y
	}

	switch v := strings.ToLower(strings.TrimSpace(query.Get("month"))); v {
	case "":
	case "all", "0":
		params.Month = 0
	default:
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, fmt.Errorf("invalid month %q", v)
		}
		params.Month = m
	}

	return params, nil
}

// ParseFilter builds the kind and filter criteria of a transaction view.
// Unset parameters leave the dimension unconstrained; kind defaults to
// expenses. year narrows the view to one calendar year.
func ParseFilter(query url.Values) (core.Kind, core.FilterCriteria, error) {
	var c core.FilterCriteria

	kind := core.Expense
	if v := query.Get("kind"); strings.TrimSpace(v) != "" {
		k, err := core.ParseKind(v)
		if err != nil {
			return "", c, fmt.Errorf("invalid kind %q", v)
		}
		kind = k
	}

	switch v := strings.ToLower(strings.TrimSpace(query.Get("month"))); v {
	case "", "all", "0":
	default:
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return "", c, fmt.Errorf("invalid month %q", v)
		}
		c.Month = m
	}

	c.Category = sanitizeInput(query.Get("category"))
	if v := sanitizeInput(query.Get("paymentMethod")); v != "" {
		c.PaymentMethod = core.NormalizePaymentMethod(v)
	}

	var err error
	if c.StartDate, err = parseDateParam(query, "startDate"); err != nil {
		return "", c, err
	}
	if c.EndDate, err = parseDateParam(query, "endDate"); err != nil {
		return "", c, err
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate) {
		return "", c, errors.New("endDate is before startDate")
	}

	// year is shorthand for a whole-year date range
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return "", c, fmt.Errorf("invalid year %q", v)
		}
		if !c.StartDate.IsZero() || !c.EndDate.IsZero() {
			return "", c, errors.New("year cannot be combined with startDate or endDate")
		}
		c = c.InYear(y)
	}

	if c.MinAmount, err = parseAmountParam(query, "minAmount"); err != nil {
		return "", c, err
	}
	if c.MaxAmount, err = parseAmountParam(query, "maxAmount"); err != nil {
		return "", c, err
	}

	return kind, c, nil
}

func parseDateParam(query url.Values, name string) (time.Time, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q", name, v)
	}
	return d, nil
}

func parseAmountParam(query url.Values, name string) (*float64, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("invalid %s %q", name, v)
	}
	return &f, nil
}

// ParseTransaction reads a new transaction of the given kind from a parsed
// body. A missing date means today.
func ParseTransaction(p *RequestBodyParser, kind core.Kind, now time.Time) (core.Transaction, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}

	date := p.Get("date")
	if date == "" {
		date = now.Format("2006-01-02")
	}

	tx := core.Transaction{
		Kind:          kind,
		Amount:        core.Amount(amount),
		Date:          date,
		PaymentMethod: p.Get("paymentMethod"),
		Notes:         p.Get("notes"),
	}
	if kind == core.Income {
		tx.Source = p.Get("source")
		tx.OtherSource = p.Get("otherSource")
	} else {
		tx.Category = p.Get("category")
	}
	return tx, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
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

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
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

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
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
