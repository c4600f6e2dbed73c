package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amishk599/remoteboard/internal/filter"
	"github.com/amishk599/remoteboard/internal/model"
)

// Classifier decides whether a posting belongs on the board.
type Classifier interface {
	Classify(p model.RawPosting) filter.Decision
}

// Processor turns a relevant posting into a stored Job.
type Processor interface {
	Process(ctx context.Context, p model.RawPosting, src model.Source) (model.Job, error)
}

// SourcePoller owns the per-source pipeline:
// validate → fetch → classify → normalize and persist.
type SourcePoller struct {
	fetchers   map[model.SourceType]model.SourceFetcher
	classifier Classifier
	processor  Processor
	logger     *slog.Logger
}

// NewSourcePoller creates a poller that dispatches each source to the fetcher
// registered for its type.
func NewSourcePoller(
	fetchers []model.SourceFetcher,
	classifier Classifier,
	processor Processor,
	logger *slog.Logger,
) *SourcePoller {
	byType := make(map[model.SourceType]model.SourceFetcher, len(fetchers))
	for _, f := range fetchers {
		byType[f.Type()] = f
	}
	return &SourcePoller{
		fetchers:   byType,
		classifier: classifier,
		processor:  processor,
		logger:     logger,
	}
}

// Supports reports whether a fetcher is registered for t.
func (p *SourcePoller) Supports(t model.SourceType) bool {
	_, ok := p.fetchers[t]
	return ok
}

// ProcessSource runs one fetch cycle for src. A fetch-level failure sets
// ErrorMessage and leaves FoundSourceIDs empty; failures of single postings
// only count toward Errors.
func (p *SourcePoller) ProcessSource(ctx context.Context, src model.Source) model.FetchResult {
	log := p.logger.With("source", src.ID, "source_type", string(src.Type))

	fetcher, ok := p.fetchers[src.Type]
	if !ok {
		msg := fmt.Sprintf("unknown source type %q", src.Type)
		log.Error("source misconfigured", "error", msg)
		return failed(msg)
	}

	if err := fetcher.Validate(src); err != nil {
		log.Error("source misconfigured", "error", err)
		return failed(err.Error())
	}

	postings, err := fetcher.FetchPostings(ctx, src)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			log.Warn("fetch cancelled")
			return failed("cancelled")
		}
		log.Error("fetch failed", "error", err)
		return failed(err.Error())
	}

	var result model.FetchResult
	result.Stats.Found = len(postings)
	seen := make(map[string]bool, len(postings))

	for _, posting := range postings {
		if ctx.Err() != nil {
			// A partial pass cannot tell which jobs disappeared upstream.
			log.Warn("processing interrupted", "error", ctx.Err())
			result.ErrorMessage = "cancelled"
			result.FoundSourceIDs = nil
			return result
		}

		id := strings.TrimSpace(posting.NativeID)
		if id == "" {
			result.Stats.Errors++
			log.Warn("posting without native id", "title", posting.Title)
			continue
		}
		posting.NativeID = id
		if !seen[id] {
			seen[id] = true
			result.FoundSourceIDs = append(result.FoundSourceIDs, id)
		}

		decision := p.classifier.Classify(posting)
		if !decision.Relevant {
			log.Debug("posting skipped", "posting_id", id, "reason", decision.Reason)
			continue
		}
		result.Stats.Relevant++

		if err := p.processOne(ctx, posting, src); err != nil {
			result.Stats.Errors++
			log.Error("posting failed", "posting_id", id, "error", err)
			continue
		}
		result.Stats.Processed++
	}

	log.Info("processed source",
		"found", result.Stats.Found,
		"relevant", result.Stats.Relevant,
		"processed", result.Stats.Processed,
		"errors", result.Stats.Errors,
	)
	return result
}

// processOne isolates a single posting so a panic in parsing or storage is
// counted as that posting's error.
func (p *SourcePoller) processOne(ctx context.Context, posting model.RawPosting, src model.Source) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing posting %s: %v", posting.NativeID, r)
		}
	}()
	_, err = p.processor.Process(ctx, posting, src)
	return err
}

func failed(msg string) model.FetchResult {
	return model.FetchResult{
		Stats:        model.SourceStats{Errors: 1},
		ErrorMessage: msg,
	}
}
