// Package cli implements stayctl, which runs the quote and calendar use cases
// against a fixture snapshot held in memory.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"stayquote/internal/app/bootstrap"
	"stayquote/internal/app/policies"
	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/infra/fixtures"
	"stayquote/internal/infra/storage/memory"
)

// options are the persistent flags shared by every command.
type options struct {
	fixtures string
	today    string
	tenant   string
}

func (o *options) clock() (func() time.Time, error) {
	if o.today == "" {
		return time.Now, nil
	}
	day, err := daterange.ParseDate(o.today)
	if err != nil {
		return nil, fmt.Errorf("--today: %w", err)
	}
	return func() time.Time { return day }, nil
}

// session is one fixture file loaded into memory storage with the use cases wired on top.
type session struct {
	store *memory.Store
	app   *bootstrap.Application
	now   func() time.Time
}

func openSession(ctx context.Context, opts *options, fetcher policies.ICalFetcher) (*session, error) {
	now, err := opts.clock()
	if err != nil {
		return nil, err
	}
	file, err := fixtures.Read(opts.fixtures)
	if err != nil {
		return nil, fmt.Errorf("read fixtures %s: %w", opts.fixtures, err)
	}
	store := memory.NewStore()
	factory := memory.Factory{Store: store}
	if err := fixtures.Seed(ctx, factory, file, now()); err != nil {
		return nil, fmt.Errorf("seed fixtures: %w", err)
	}
	app := bootstrap.Build(bootstrap.Ports{
		UoWFactory:  factory,
		Outbox:      memory.NewOutbox(),
		Inbox:       memory.NewInbox(),
		Fetcher:     fetcher,
		Archive:     memory.NewRawBodyStore(),
		ExportCache: memory.NewExportCache(),
	}, bootstrap.Settings{Now: now})
	return &session{store: store, app: app, now: now}, nil
}

// fileFetcher serves one local .ics file whatever URL is asked for.
type fileFetcher struct {
	path string
}

func (f fileFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ical.ErrFetch, err)
	}
	return body, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
