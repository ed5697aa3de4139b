package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/infrastructure/storage"
	"GrowthAgent/internal/ports"
	"GrowthAgent/internal/retry"
	"GrowthAgent/internal/source"
)

// Stage names as they appear in run summaries.
const (
	StageIngest   = "ingest"
	StageCurate   = "curate"
	StageGenerate = "generate"
	StageSync     = "sync"
	StageTrack    = "track"
	StageArchive  = "archive"
)

// ContentSettings is the immutable configuration of the content workflow.
type ContentSettings struct {
	MaxItemsPerSource int
	FetchConcurrency  int
	MinScore          int
	TopK              int
	MaxCurateItems    int
	JudgeConcurrency  int
	GenerationEnabled bool
	BlogContext       string
	Defaults          DocumentDefaults
	Location          *time.Location
	FetchRetry        retry.Policy
	JudgeRetry        retry.Policy
	DraftRetry        retry.Policy
}

// ContentDeps wires all driven adapters into the content workflow.
type ContentDeps struct {
	Store     *storage.Store
	Fetchers  *source.Registry
	Judge     ports.Judge
	Drafter   ports.Drafter
	Lifecycle *Lifecycle
	Logger    *slog.Logger
	Settings  ContentSettings
	Now       func() time.Time
}

// ContentPipeline runs the ingest, curate, and generate stages.
type ContentPipeline struct {
	store     *storage.Store
	fetchers  *source.Registry
	judge     ports.Judge
	drafter   ports.Drafter
	lifecycle *Lifecycle
	logger    *slog.Logger
	settings  ContentSettings
	now       func() time.Time
}

// NewContentPipeline constructs the orchestration component.
func NewContentPipeline(deps ContentDeps) *ContentPipeline {
	settings := deps.Settings
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Defaults.Title == "" {
		settings.Defaults = DefaultDocumentDefaults()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	lifecycle := deps.Lifecycle
	if lifecycle == nil {
		lifecycle = NewLifecycle(deps.Store, deps.Logger, 0, settings.Location)
	}
	lifecycle.now = now

	return &ContentPipeline{
		store:     deps.Store,
		fetchers:  deps.Fetchers,
		judge:     deps.Judge,
		drafter:   deps.Drafter,
		lifecycle: lifecycle,
		logger:    componentLogger(deps.Logger, "content"),
		settings:  settings,
		now:       now,
	}
}

// Today is the day key the curate and generate stages work on.
func (p *ContentPipeline) Today() string {
	return storage.DayKey(p.now(), p.settings.Location)
}

type fetchOutcome struct {
	records []domain.RawRecord
	err     error
	skipped bool
	at      time.Time
}

// Ingest fetches every creator and active feed, appends what was fetched to
// the inbox in one write, then records lastFetchedAt for the subscriptions
// that succeeded.
func (p *ContentPipeline) Ingest(ctx context.Context) (domain.StageReport, error) {
	report := domain.NewStageReport(StageIngest)

	creators, _, err := p.store.Creators().ReadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("read creators: %w", err)
	}
	feeds, _, err := p.store.Feeds().ReadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("read feeds: %w", err)
	}

	subs := make([]domain.Subscription, 0, len(creators)+len(feeds))
	for _, c := range creators {
		subs = append(subs, c.Subscription())
	}
	for _, f := range feeds {
		if !f.Active() {
			report.Skipped++
			continue
		}
		subs = append(subs, f.Subscription())
	}

	results := make([]fetchOutcome, len(subs))
	fanOut(ctx, len(subs), p.settings.FetchConcurrency, func(ctx context.Context, i int) {
		results[i] = p.fetch(ctx, subs[i])
	})
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("ingest interrupted: %w", err)
	}

	var records []domain.RawRecord
	fetched := map[domain.SourceKind]map[string]time.Time{
		domain.SourceX:   {},
		domain.SourceRSS: {},
	}
	for i, sub := range subs {
		res := results[i]
		unit := string(sub.Kind) + "/" + sub.Name
		switch {
		case res.skipped:
			report.Skipped++
			p.logger.Warn("skipping subscription", "subscription", unit, "reason", res.err)
		case res.err != nil:
			report.Attempted++
			report.Fail(unit, res.err)
			p.logger.Error("fetch failed", "subscription", unit, "error", res.err)
		default:
			report.Attempted++
			report.Succeeded++
			records = append(records, res.records...)
			fetched[sub.Kind][sub.ID] = res.at
			p.logger.Debug("fetched subscription", "subscription", unit, "records", len(res.records))
		}
	}

	if err := p.store.Inbox().Append(ctx, records); err != nil {
		return report, fmt.Errorf("append inbox: %w", err)
	}
	if err := p.markFetched(ctx, creators, feeds, fetched); err != nil {
		return report, err
	}

	report.Note("records", len(records))
	p.logger.Info("ingest finished", "subscriptions", len(subs), "records", len(records), "failed", report.Failed)
	return report, nil
}

func (p *ContentPipeline) fetch(ctx context.Context, sub domain.Subscription) fetchOutcome {
	fetcher, err := p.fetchers.Resolve(sub.Kind)
	if err != nil {
		return fetchOutcome{skipped: true, err: err}
	}

	limit := p.settings.MaxItemsPerSource
	fetched, err := retry.Value(ctx, p.settings.FetchRetry, func(ctx context.Context) ([]domain.RawRecord, error) {
		return fetcher.Fetch(ctx, sub, limit)
	})
	if err != nil {
		return fetchOutcome{err: err}
	}

	at := p.now().UTC()
	out := make([]domain.RawRecord, 0, len(fetched))
	for _, rec := range fetched {
		if limit > 0 && len(out) >= limit {
			break
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.FetchedAt.IsZero() {
			rec.FetchedAt = at
		}
		if err := rec.Validate(); err != nil {
			p.logger.Warn("dropping invalid record", "subscription", sub.Name, "origin_id", rec.OriginID, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return fetchOutcome{records: out, at: at}
}

func (p *ContentPipeline) markFetched(ctx context.Context, creators []domain.CreatorSubscription, feeds []domain.FeedSubscription, fetched map[domain.SourceKind]map[string]time.Time) error {
	var touchedCreators []domain.CreatorSubscription
	for _, c := range creators {
		if at, ok := fetched[domain.SourceX][c.ID]; ok {
			c.LastFetchedAt = &at
			touchedCreators = append(touchedCreators, c)
		}
	}
	if len(touchedCreators) > 0 {
		if _, err := p.store.Creators().Upsert(ctx, touchedCreators, creatorKey); err != nil {
			return fmt.Errorf("update creators: %w", err)
		}
	}

	var touchedFeeds []domain.FeedSubscription
	for _, f := range feeds {
		if at, ok := fetched[domain.SourceRSS][f.ID]; ok {
			f.LastFetchedAt = &at
			touchedFeeds = append(touchedFeeds, f)
		}
	}
	if len(touchedFeeds) > 0 {
		if _, err := p.store.Feeds().Upsert(ctx, touchedFeeds, feedKey); err != nil {
			return fmt.Errorf("update feeds: %w", err)
		}
	}
	return nil
}

type verdict struct {
	judgement domain.Judgement
	err       error
}

// Curate judges staged records, merges them into today's collection, ranks
// and selects, then purges every evaluated record from the inbox. Only
// records with a malformed judgement are dropped; any other failure keeps the
// record staged for the next run. A configuration error aborts the stage
// before anything is written.
func (p *ContentPipeline) Curate(ctx context.Context) (domain.StageReport, error) {
	report := domain.NewStageReport(StageCurate)

	inbox, readReport, err := p.store.Inbox().ReadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("read inbox: %w", err)
	}
	if readReport.Malformed > 0 {
		report.Note("malformed", readReport.Malformed)
	}
	if len(inbox) == 0 {
		report.Note("selected", 0)
		p.logger.Info("inbox is empty, nothing to curate")
		return report, nil
	}
	if p.judge == nil {
		return report, fmt.Errorf("curate: no judge configured: %w", domain.ErrConfiguration)
	}

	batch := inbox
	if limit := p.settings.MaxCurateItems; limit > 0 && len(batch) > limit {
		batch = batch[:limit]
		report.Skipped = len(inbox) - limit
	}

	results := make([]verdict, len(batch))
	fanOut(ctx, len(batch), p.settings.JudgeConcurrency, func(ctx context.Context, i int) {
		rec := batch[i]
		jc := domain.JudgeContext{Author: rec.Author, Source: rec.Source, Title: rec.Title, URL: rec.URL}
		j, err := retry.Value(ctx, p.settings.JudgeRetry, func(ctx context.Context) (domain.Judgement, error) {
			return p.judge.Evaluate(ctx, rec.Text(), jc)
		})
		results[i] = verdict{judgement: j, err: err}
	})
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("curate interrupted: %w", err)
	}

	now := p.now().UTC()
	evaluated := make(map[string]struct{}, len(batch))
	var judged []domain.CuratedRecord
	for i, rec := range batch {
		report.Attempted++
		res := results[i]
		if res.err == nil {
			if res.judgement.Score < domain.MinScore || res.judgement.Score > domain.MaxScore {
				res.err = &domain.JudgementError{Malformed: true, Err: fmt.Errorf("score %d out of range", res.judgement.Score)}
			}
		}
		if res.err != nil {
			if errors.Is(res.err, domain.ErrConfiguration) {
				return report, fmt.Errorf("curate %s: %w", rec.ID, res.err)
			}
			report.Fail(rec.ID, res.err)
			if !malformedJudgement(res.err) {
				p.logger.Warn("judgement failed, keeping record staged", "record", rec.ID, "error", res.err)
				continue
			}
			p.logger.Error("judgement rejected, dropping record", "record", rec.ID, "error", res.err)
			evaluated[rec.ID] = struct{}{}
			continue
		}

		report.Succeeded++
		evaluated[rec.ID] = struct{}{}
		judged = append(judged, curatedFrom(rec, res.judgement, now))
	}

	day := p.Today()
	dayCollection := p.store.Curated(day)
	existing, _, err := dayCollection.ReadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("read curated %s: %w", day, err)
	}

	candidates, _ := storage.MergeByKey(existing, judged, curatedSourceKey, nil)
	selected := RankAndSelect(candidates, p.settings.MinScore, p.settings.TopK)

	if len(selected) > 0 || len(existing) > 0 {
		if err := dayCollection.Overwrite(ctx, selected); err != nil {
			return report, fmt.Errorf("write curated %s: %w", day, err)
		}
	}

	purged, err := p.lifecycle.PurgeStaging(ctx, evaluated)
	if err != nil {
		return report, err
	}

	stats := Statistics(judged)
	report.Note("day", day)
	report.Note("selected", len(selected))
	report.Note("purged", purged)
	report.Note("avg_score", fmt.Sprintf("%.1f", stats.Average))
	for name, n := range stats.Buckets {
		report.Note("score_"+name, n)
	}
	p.logger.Info("curate finished",
		"day", day,
		"judged", len(judged),
		"selected", len(selected),
		"failed", report.Failed,
		"remaining", len(inbox)-purged,
	)
	return report, nil
}

// malformedJudgement reports whether the judge answered with unusable output.
// Only such records leave staging without a verdict.
func malformedJudgement(err error) bool {
	var je *domain.JudgementError
	return errors.As(err, &je) && je.Malformed
}

func curatedFrom(rec domain.RawRecord, j domain.Judgement, now time.Time) domain.CuratedRecord {
	return domain.CuratedRecord{
		ID:             uuid.NewString(),
		SourceRecordID: rec.ID,
		Score:          j.Score,
		Summary:        j.Summary,
		Rationale:      j.Rationale,
		CuratedAt:      now,
		Source:         rec.Source,
		URL:            rec.URL,
		Author:         rec.Author,
		Title:          rec.Title,
		Body:           rec.Body,
		PublishedAt:    rec.PublishedAt,
	}
}

// Generate drafts a document from the day's curated collection, writes it,
// and archives the collection. A missing or empty collection is a no-op.
func (p *ContentPipeline) Generate(ctx context.Context, day string) (domain.StageReport, error) {
	report := domain.NewStageReport(StageGenerate)
	report.Note("day", day)

	if !p.settings.GenerationEnabled {
		report.Note("disabled", true)
		p.logger.Info("generation disabled")
		return report, nil
	}

	collection := p.store.Curated(day)
	if !collection.Exists() {
		archived, err := p.lifecycle.IsArchived(day)
		if err != nil {
			return report, err
		}
		if archived {
			report.Note("already_archived", true)
			p.logger.Warn("day already generated and archived", "day", day)
		} else {
			p.logger.Info("no curated collection for day", "day", day)
		}
		return report, nil
	}

	curated, _, err := collection.ReadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("read curated %s: %w", day, err)
	}
	if len(curated) == 0 {
		p.logger.Info("curated collection is empty", "day", day)
		return report, nil
	}
	if p.drafter == nil {
		return report, fmt.Errorf("generate: no drafter configured: %w", domain.ErrConfiguration)
	}

	report.Attempted = 1
	draft, err := retry.Value(ctx, p.settings.DraftRetry, func(ctx context.Context) (domain.Draft, error) {
		return p.drafter.Draft(ctx, curated, p.settings.BlogContext)
	})
	if err != nil {
		if ctx.Err() != nil {
			return report, fmt.Errorf("generate interrupted: %w", ctx.Err())
		}
		report.Fail(day, err)
		p.logger.Error("draft failed", "day", day, "error", err)
		return report, nil
	}

	doc := BuildDocument(draft, curated, p.now(), p.settings.Defaults)
	path := storage.DocumentPath(doc)
	if err := p.store.WriteDocument(ctx, path, documentHeader(doc), doc.Body); err != nil {
		return report, fmt.Errorf("write document: %w", err)
	}

	archivePath, err := p.lifecycle.ArchiveDay(ctx, day)
	if err != nil {
		return report, err
	}

	report.Succeeded = 1
	report.Note("document", path)
	report.Note("archive", archivePath)
	p.logger.Info("document generated", "day", day, "path", path, "sources", len(doc.SourceRecordIDs))
	return report, nil
}
