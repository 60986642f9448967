// Package api is the HTTP client for the personal-finance backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	pathExpenses   = "/api/get-user-expenses"
	pathIncome     = "/api/get-user-income"
	pathBudgets    = "/api/budgets"
	pathGoals      = "/api/saving-goals"
	pathAddExpense = "/api/add-expense"
	pathAddIncome  = "/api/add-income"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

type Client struct {
	baseURL    string
	session    Session
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentAPI) }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(baseURL string, session Session, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    session,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response types

// Records are kept raw so one undecodable element is skipped on its own.
type expensesResponse struct {
	RecentExpenses       []json.RawMessage `json:"recentExpenses"`
	TotalMonthlyExpenses core.Amount       `json:"totalMonthlyExpenses"`
}

type incomeResponse struct {
	RecentIncome       []json.RawMessage `json:"recentIncome"`
	TotalMonthlyIncome core.Amount       `json:"totalMonthlyIncome"`
}

type budgetsResponse struct {
	Budgets []json.RawMessage `json:"budgets"`
}

type savingGoalsResponse struct {
	SavingGoals []json.RawMessage `json:"saving_goals"`
}

type addRequest struct {
	Category      string  `json:"category,omitempty"`
	Source        string  `json:"source,omitempty"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	PaymentMethod string  `json:"paymentMethod"`
	Notes         string  `json:"notes,omitempty"`
	OtherSource   string  `json:"otherSource,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Msg   string `json:"msg"`
}

// Endpoints

func (c *Client) FetchExpenses(ctx context.Context) (core.Collection, error) {
	var resp expensesResponse
	if err := c.do(ctx, http.MethodGet, pathExpenses, nil, &resp, nil); err != nil {
		return core.Collection{}, err
	}
	return c.collection(ctx, core.Expense, resp.RecentExpenses, resp.TotalMonthlyExpenses), nil
}

func (c *Client) FetchIncome(ctx context.Context) (core.Collection, error) {
	var resp incomeResponse
	if err := c.do(ctx, http.MethodGet, pathIncome, nil, &resp, nil); err != nil {
		return core.Collection{}, err
	}
	return c.collection(ctx, core.Income, resp.RecentIncome, resp.TotalMonthlyIncome), nil
}

// FetchTransactions implements source.TransactionReader.
func (c *Client) FetchTransactions(ctx context.Context, kind core.Kind) (core.Collection, error) {
	switch kind {
	case core.Expense:
		return c.FetchExpenses(ctx)
	case core.Income:
		return c.FetchIncome(ctx)
	default:
		return core.Collection{}, core.ErrInvalidKind
	}
}

// FetchBudgets returns the user's budgets. A backend without the budgets
// endpoint (404) yields no budgets rather than an error.
func (c *Client) FetchBudgets(ctx context.Context) ([]core.Budget, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, pathBudgets, nil, &raw, nil)
	if IsStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Both a bare array and {"budgets": [...]} are accepted.
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapped budgetsResponse
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("decode budgets: %w", err)
		}
		list = wrapped.Budgets
	}

	budgets, skipped := decodeEach[core.Budget](list)
	c.reportSkipped(ctx, pathBudgets, skipped)
	return budgets, nil
}

// FetchSavingGoals returns the user's saving goals. Like budgets, a missing
// endpoint yields no goals.
func (c *Client) FetchSavingGoals(ctx context.Context) ([]core.SavingGoal, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, pathGoals, nil, &raw, nil)
	if IsStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var wrapped savingGoalsResponse
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		if err := json.Unmarshal(raw, &wrapped.SavingGoals); err != nil {
			return nil, fmt.Errorf("decode saving goals: %w", err)
		}
	}

	goals, skipped := decodeEach[core.SavingGoal](wrapped.SavingGoals)
	c.reportSkipped(ctx, pathGoals, skipped)
	return goals, nil
}

// FetchSnapshot fetches expenses, income, budgets and saving goals
// concurrently. Any failure cancels the other requests and fails the whole
// snapshot.
func (c *Client) FetchSnapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		col, err := c.FetchExpenses(gctx)
		snap.Expenses = col
		return err
	})
	g.Go(func() error {
		col, err := c.FetchIncome(gctx)
		snap.Income = col
		return err
	})
	g.Go(func() error {
		b, err := c.FetchBudgets(gctx)
		snap.Budgets = b
		return err
	})
	g.Go(func() error {
		goals, err := c.FetchSavingGoals(gctx)
		snap.Goals = goals
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

// AddTransaction submits tx. The backend does not echo an id, so the
// returned reference is the Idempotency-Key the request was sent with.
func (c *Client) AddTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	path := pathAddExpense
	if tx.Kind == core.Income {
		path = pathAddIncome
	}
	body := addRequest{
		Amount:        tx.Amount.Float(),
		Date:          tx.Date,
		PaymentMethod: tx.PaymentMethod,
		Notes:         tx.Notes,
		OtherSource:   tx.OtherSource,
	}
	if tx.Kind == core.Income {
		body.Source = tx.Source
	} else {
		body.Category = tx.Category
	}

	ref := uuid.NewString()
	header := http.Header{"Idempotency-Key": {ref}}
	if err := c.do(ctx, http.MethodPost, path, body, nil, header); err != nil {
		return "", err
	}
	return ref, nil
}

// Internal helpers

// collection decodes records one by one. Elements that are not objects are
// dropped; wrongly typed fields inside an object are tolerated by the
// Transaction decoder.
func (c *Client) collection(ctx context.Context, kind core.Kind, records []json.RawMessage, total core.Amount) core.Collection {
	txs, skipped := decodeEach[core.Transaction](records)
	for i := range txs {
		txs[i].Kind = kind
		txs[i].PaymentMethod = core.NormalizePaymentMethod(txs[i].PaymentMethod)
	}
	c.reportSkipped(ctx, kind.String(), skipped)

	col := core.Collection{
		Kind:         kind,
		Transactions: txs,
		FetchedAt:    c.now(),
	}
	if total.Valid() {
		col.MonthlyTotal = total.Float()
	}
	return col
}

func (c *Client) reportSkipped(ctx context.Context, what string, n int) {
	if n == 0 || c.logger == nil {
		return
	}
	c.logger.WarnContext(ctx, "Skipped undecodable backend records",
		log.FieldKind, what,
		log.FieldCount, n)
}

// decodeEach decodes every record on its own and counts the ones that are
// null or not decodable.
func decodeEach[T any](records []json.RawMessage) ([]T, int) {
	out := make([]T, 0, len(records))
	skipped := 0
	for _, r := range records {
		var v T
		if isNull(r) || json.Unmarshal(r, &v) != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped
}

func isNull(r json.RawMessage) bool {
	return len(bytes.TrimSpace(r)) == 0 || string(bytes.TrimSpace(r)) == "null"
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, header http.Header) error {
	if !c.session.Valid() {
		return ErrNoSession
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.session.authorize(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.DebugContext(ctx, "Backend call",
			log.FieldMethod, method,
			log.FieldPath, path,
			log.FieldStatusCode, resp.StatusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil {
			se.Message = er.Error
			if se.Message == "" {
				se.Message = er.Msg
				se.TokenError = er.Msg != ""
			}
		}
		return se
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
