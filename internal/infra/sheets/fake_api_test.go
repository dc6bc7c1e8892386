package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"sales-tracker-bot/internal/domain"
)

// fakeAPI is an in-memory spreadsheet for unit tests. Rows are stored without
// the header, so index 0 corresponds to sheet row 2.
type fakeAPI struct {
	mu     sync.Mutex
	tabs   map[string][][]string
	calls  int
	failN  int   // respond rate-limited this many times before succeeding
	broken error // non-rate-limit error returned on every call
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{tabs: make(map[string][][]string)}
}

func (f *fakeAPI) gate() error {
	f.calls++
	if f.broken != nil {
		return f.broken
	}
	if f.failN > 0 {
		f.failN--
		return fmt.Errorf("%w: quota exceeded", domain.ErrRateLimited)
	}
	return nil
}

func tabName(rng string) string {
	return strings.SplitN(rng, "!", 2)[0]
}

func (f *fakeAPI) Get(ctx context.Context, readRange string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return nil, err
	}
	src := f.tabs[tabName(readRange)]
	out := make([][]string, len(src))
	for i, row := range src {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (f *fakeAPI) Append(ctx context.Context, tableRange string, row []interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return err
	}
	strRow := make([]string, len(row))
	for i, v := range row {
		strRow[i] = fmt.Sprint(v)
	}
	tab := tabName(tableRange)
	f.tabs[tab] = append(f.tabs[tab], strRow)
	return nil
}

func (f *fakeAPI) UpdateCell(ctx context.Context, cellRef string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return err
	}
	tab := tabName(cellRef)
	ref := strings.SplitN(cellRef, "!", 2)[1]
	col := int(ref[0] - 'A')
	rowNum, err := strconv.Atoi(ref[1:])
	if err != nil {
		return fmt.Errorf("fake: bad cell ref %q", cellRef)
	}
	idx := rowNum - 2
	rows := f.tabs[tab]
	if idx < 0 || idx >= len(rows) {
		return fmt.Errorf("fake: cell %q out of range", cellRef)
	}
	for len(rows[idx]) <= col {
		rows[idx] = append(rows[idx], "")
	}
	rows[idx][col] = fmt.Sprint(value)
	return nil
}
