// Package engine sequences a whole batch: input parsing, profile expansion,
// per-pin resolution and download. One logical worker processes the queue
// sequentially; the remote site rate-limits aggressively and parallel
// fetches would only trip its abuse detection.
package engine

import (
	"context"
	"fmt"
	"time"

	"pindl/internal/downloader"
	"pindl/pkg/config"
	"pindl/pkg/logger"
	"pindl/pkg/pinterest"
	"pindl/pkg/profile"
	"pindl/pkg/ratelimit"
	"pindl/pkg/resolver"
	"pindl/pkg/storage"
)

// Engine owns the per-batch session and collaborators. All network calls
// of one batch share a single cookie-carrying client so the CSRF token set
// by a profile page is available to the pagination endpoint.
type Engine struct {
	cfg        *config.Config
	client     *pinterest.Client
	resolver   *resolver.Resolver
	enumerator *profile.Enumerator
	downloader *downloader.Downloader
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// New wires an Engine from configuration.
func New(cfg *config.Config) (*Engine, error) {
	log := logger.GetLogger()

	client := pinterest.NewClient(&cfg.HTTP, log)
	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	return &Engine{
		cfg:        cfg,
		client:     client,
		resolver:   resolver.New(client, log),
		enumerator: profile.New(client, limiter, log),
		downloader: downloader.New(client, store, log),
		limiter:    limiter,
		logger:     log,
	}, nil
}

// Client exposes the shared session, mainly so tests can point it at a
// local server.
func (e *Engine) Client() *pinterest.Client {
	return e.client
}

// Run processes the input text block (one URL per line) and streams events
// until the batch finishes, is cancelled, or crashes. The returned channel
// is closed when the batch is over.
func (e *Engine) Run(ctx context.Context, inputText string) <-chan Event {
	events := make(chan Event, 64)

	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				e.logger.ErrorWithFields("engine crashed", map[string]interface{}{
					"panic": fmt.Sprint(r),
				})
				events <- Crashed{Message: fmt.Sprint(r)}
			}
		}()

		e.run(ctx, inputText, events)
	}()

	return events
}

func (e *Engine) run(ctx context.Context, inputText string, events chan<- Event) {
	validURLs, invalidEntries := pinterest.ParseURLLines(inputText)

	var notes []string
	for _, entry := range invalidEntries {
		notes = append(notes, fmt.Sprintf("Invalid URL skipped: %s", entry))
	}

	pinURLs, expandNotes, discovered := e.expandQueue(ctx, validURLs)
	notes = append(notes, expandNotes...)

	events <- QueuePrepared{Items: pinURLs, Notes: notes}

	total := len(pinURLs)
	events <- Progress{Current: 0, Total: total}

	if total == 0 {
		events <- Completed{
			Cancelled:  ctx.Err() != nil,
			Notes:      notes,
			Discovered: discovered,
		}
		return
	}

	var success, failed int
	cancelled := false

	for i, pinURL := range pinURLs {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		index := i + 1

		events <- RowUpdate{Index: index, ItemURL: pinURL, Status: StatusProcessing}

		savedPath, candidate, err := e.processPin(pinURL, index)
		if err != nil {
			failed++
			events <- RowUpdate{
				Index:   index,
				ItemURL: pinURL,
				Status:  StatusFailed,
				Error:   err.Error(),
			}
		} else {
			success++
			events <- RowUpdate{
				Index:     index,
				ItemURL:   pinURL,
				Status:    StatusDownloaded,
				SavedPath: savedPath,
				MediaURL:  candidate.URL,
				MediaType: candidate.Type,
			}
		}

		events <- Progress{Current: index, Total: total}
	}

	events <- Completed{
		Total:      total,
		Success:    success,
		Failed:     failed,
		Cancelled:  cancelled,
		Notes:      notes,
		Discovered: discovered,
	}
}

// expandQueue splits the input into direct pins and profiles, expands the
// profiles, and deduplicates the combined queue. A profile that fails to
// expand becomes a note; the rest of the batch proceeds.
func (e *Engine) expandQueue(ctx context.Context, sourceURLs []string) (pins []string, notes []string, discovered int) {
	var expanded []string

	for _, sourceURL := range sourceURLs {
		if ctx.Err() != nil {
			break
		}

		if !pinterest.IsProfileURL(sourceURL) {
			expanded = append(expanded, sourceURL)
			continue
		}

		result, err := e.enumerator.Enumerate(ctx, sourceURL, e.cfg.Profile.MaxPins)
		if err != nil {
			notes = append(notes, fmt.Sprintf("Profile scan failed (%s): %v", sourceURL, err))
			continue
		}

		expanded = append(expanded, result.PinURLs...)
		discovered += result.DiscoveredCount
		notes = append(notes, fmt.Sprintf("Profile @%s: discovered %d pin(s).",
			result.Username, result.DiscoveredCount))
	}

	return dedupeStrings(expanded), notes, discovered
}

// processPin resolves one pin and downloads its best working candidate.
func (e *Engine) processPin(pinURL string, index int) (string, *pinterest.MediaCandidate, error) {
	e.limiter.Wait()

	candidates, err := e.resolver.Resolve(pinURL)
	if err != nil {
		return "", nil, err
	}

	prefix := fmt.Sprintf("pin_%03d", index)
	return e.downloader.Download(candidates, prefix)
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	var deduped []string
	for _, value := range values {
		if !seen[value] {
			seen[value] = true
			deduped = append(deduped, value)
		}
	}
	return deduped
}
