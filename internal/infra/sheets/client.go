// Package sheets implements the record repositories against a Google Sheets
// spreadsheet, the system of record. Every lookup is a full fetch of the
// relevant sheet followed by a linear scan, and every targeted write re-fetches
// before updating a single cell; the spreadsheet offers nothing better. Calls
// are wrapped in a retry policy that reacts only to rate limiting.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"sales-tracker-bot/internal/domain"
	"sales-tracker-bot/internal/infra/metrics"
)

// API is the narrow seam over the spreadsheet values service. Unit tests plug
// a fake in here; production uses the Google client below.
type API interface {
	// Get returns the rows of readRange as strings, trailing empty cells
	// omitted per row.
	Get(ctx context.Context, readRange string) ([][]string, error)
	// Append adds one row after the last row of the given table range.
	Append(ctx context.Context, tableRange string, row []interface{}) error
	// UpdateCell overwrites a single cell, e.g. "Workers!C4".
	UpdateCell(ctx context.Context, cell string, value interface{}) error
}

var _ API = (*googleAPI)(nil)

type googleAPI struct {
	svc           *sheetsv4.Service
	spreadsheetID string
}

// NewGoogleAPI builds the production API from a service-account credentials
// file.
func NewGoogleAPI(ctx context.Context, credentialsFile, spreadsheetID string) (*googleAPI, error) {
	svc, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &googleAPI{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *googleAPI) Get(ctx context.Context, readRange string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (g *googleAPI) Append(ctx context.Context, tableRange string, row []interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{row}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, tableRange, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return classify(err)
	}
	return nil
}

func (g *googleAPI) UpdateCell(ctx context.Context, cell string, value interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{{value}}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, cell, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify maps an HTTP 429 onto domain.ErrRateLimited so the retry policy
// can tell it apart from everything else.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}
	return err
}

// Store carries the shared call/retry machinery for the record repositories.
type Store struct {
	api      API
	log      *zerolog.Logger
	attempts int
	backoff  time.Duration
}

// NewStore wires the repositories' shared plumbing. attempts is the total
// attempt budget including the first call; backoff is the base delay, doubled
// on each retry.
func NewStore(api API, logger *zerolog.Logger, attempts int, backoff time.Duration) *Store {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Store{api: api, log: logger, attempts: attempts, backoff: backoff}
}

// call runs fn under the retry policy: rate-limit failures are retried with
// exponential backoff up to the attempt budget, anything else propagates
// immediately.
func (s *Store) call(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	b := retry.WithMaxRetries(uint64(s.attempts-1), retry.NewExponential(s.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, domain.ErrRateLimited) {
			metrics.IncSheetsRetry()
			s.log.Warn().Str("op", op).Msg("sheets rate limited, backing off")
			return retry.RetryableError(err)
		}
		return err
	})

	result := "ok"
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		result = "rate_limited"
	case err != nil:
		result = "error"
	}
	metrics.ObserveSheetsCall(op, result, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return v
}
