// Package pipeline runs one patent analysis end to end: prior-art search,
// the three scoring stages, aggregation, persistence and usage accounting.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"patent-backend/internal/aggregate"
	"patent-backend/internal/analyses"
	"patent-backend/internal/priorart"
	"patent-backend/internal/scoring"
	"patent-backend/internal/shared/metrics"
	"patent-backend/internal/shared/telemetry"
	"patent-backend/internal/usage"
)

const DefaultStageTimeout = 30 * time.Second

// Scorer runs the three scoring stages.
type Scorer interface {
	Novelty(ctx context.Context, inv scoring.Invention, items []priorart.Item) (scoring.NoveltyResult, error)
	Inventiveness(ctx context.Context, title string, noveltyScore float64) (scoring.InventivenessResult, error)
	Utility(ctx context.Context, title, technicalContent string) (scoring.UtilityResult, error)
	Provider() string
}

// Archiver stores a rendered copy of a completed analysis.
type Archiver interface {
	Archive(ctx context.Context, awr analyses.AnalysisWithReports) error
}

// Orchestrator wires the pipeline dependencies. All fields except Archiver are required.
type Orchestrator struct {
	Search   priorart.Searcher
	Scorer   Scorer
	Store    analyses.Store
	Ledger   usage.Ledger
	Archiver Archiver
	Policy   aggregate.Policy
	Pricing  usage.Pricing

	// StageTimeout bounds each outbound call.
	StageTimeout time.Duration
	// UtilityConcurrent runs utility scoring alongside the novelty and inventiveness chain.
	UtilityConcurrent bool

	wg sync.WaitGroup
}

type stageResults struct {
	priorArt      []priorart.Item
	novelty       *scoring.NoveltyResult
	inventiveness *scoring.InventivenessResult
	utility       *scoring.UtilityResult
}

func (r stageResults) tokens() int {
	n := 0
	if r.novelty != nil {
		n += r.novelty.TokensUsed
	}
	if r.inventiveness != nil {
		n += r.inventiveness.TokensUsed
	}
	if r.utility != nil {
		n += r.utility.TokensUsed
	}
	return n
}

// Run validates req, creates the analysis and executes every stage before returning.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	a, err := o.start(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return o.execute(ctx, a, req)
}

// RunAsync creates the analysis, moves it to processing and finishes the run in
// the background. Callers poll the read model for the outcome; Wait blocks until
// every background run has returned.
func (o *Orchestrator) RunAsync(ctx context.Context, req Request) (analyses.Analysis, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return analyses.Analysis{}, err
	}
	a, err := o.start(ctx, req)
	if err != nil {
		return analyses.Analysis{}, err
	}
	bg := telemetry.Detach(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				telemetry.Error("pipeline.panic", map[string]any{
					"request_id":  telemetry.RequestIDFromContext(bg),
					"analysis_id": a.ID,
					"panic":       r,
				})
				msg := "internal error"
				_ = o.Store.SetStatus(bg, a.ID, analyses.StatusFailed, &msg)
			}
		}()
		_, _ = o.execute(bg, a, req)
	}()
	return a, nil
}

// Wait blocks until background runs started by RunAsync finish.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) start(ctx context.Context, req Request) (analyses.Analysis, error) {
	a, err := o.Store.CreateAnalysis(ctx, analyses.NewAnalysis{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Metadata: analyses.Metadata{
			TechnicalField:   req.TechnicalField,
			TechnicalContent: req.TechnicalContent,
		},
	})
	if err != nil {
		metrics.IncAnalysisFailed(StageCreate)
		return analyses.Analysis{}, &StageError{Stage: StageCreate, Err: err}
	}
	logStatus(ctx, a, analyses.StatusPending, "new->pending", nil)

	if err := o.Store.SetStatus(ctx, a.ID, analyses.StatusProcessing, nil); err != nil {
		metrics.IncAnalysisFailed(StageCreate)
		telemetry.Error("analysis.start_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"analysis_id": a.ID,
			"error":       err,
		})
		return analyses.Analysis{}, &StageError{Stage: StageCreate, AnalysisID: a.ID, Err: err}
	}
	a.Status = analyses.StatusProcessing
	metrics.IncAnalysisStarted()
	logStatus(ctx, a, analyses.StatusProcessing, "pending->processing", nil)
	return a, nil
}

func (o *Orchestrator) execute(ctx context.Context, a analyses.Analysis, req Request) (Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("analysis.id", a.ID),
		attribute.String("llm.provider", o.Scorer.Provider()),
		attribute.Bool("pipeline.utility_concurrent", o.UtilityConcurrent),
	))
	defer span.End()
	startedAt := time.Now()

	var res stageResults
	res.priorArt = o.searchPriorArt(ctx, req.Title)
	span.SetAttributes(attribute.Int("priorart.count", len(res.priorArt)))

	var err error
	if o.UtilityConcurrent {
		err = o.scoreConcurrently(ctx, a.ID, req, &res)
	} else {
		err = o.scoreSequentially(ctx, a.ID, req, &res)
	}
	if err != nil {
		return Result{}, o.fail(ctx, span, a, startedAt, err)
	}

	agg, err := o.Policy.Aggregate(res.novelty.Score, res.inventiveness.Score, res.utility.Score)
	if err != nil {
		return Result{}, o.fail(ctx, span, a, startedAt, &StageError{Stage: StageComprehensive, AnalysisID: a.ID, Err: err})
	}
	if _, err := o.Store.AppendReport(ctx, a.ID, analyses.ReportInput{
		Type:         analyses.ReportComprehensive,
		Content:      agg.ReportText,
		ScorePercent: float64(agg.OverallScore),
		Summary:      agg.Recommendation,
		Details: map[string]any{
			"novelty_score":       res.novelty.Score,
			"inventiveness_score": res.inventiveness.Score,
			"utility_score":       res.utility.Score,
			"overall_score":       agg.OverallScore,
			"recommendation":      agg.Recommendation,
		},
	}); err != nil {
		return Result{}, o.fail(ctx, span, a, startedAt, &StageError{Stage: StageComprehensive, AnalysisID: a.ID, Err: err})
	}

	if err := o.Store.SetStatus(ctx, a.ID, analyses.StatusCompleted, nil); err != nil {
		return Result{}, o.fail(ctx, span, a, startedAt, &StageError{Stage: StageComplete, AnalysisID: a.ID, Err: err})
	}
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(time.Since(startedAt).Microseconds()) / 1000.0)
	logStatus(ctx, a, analyses.StatusCompleted, "processing->completed", map[string]any{
		"overall_score": agg.OverallScore,
		"duration_ms":   time.Since(startedAt).Milliseconds(),
	})

	tokens := res.tokens()
	o.recordUsage(ctx, a, tokens)
	o.archive(ctx, a.ID)

	span.SetAttributes(attribute.Int("analysis.overall_score", agg.OverallScore))
	return Result{
		AnalysisID:     a.ID,
		Status:         analyses.StatusCompleted,
		OverallScore:   agg.OverallScore,
		Recommendation: agg.Recommendation,
		Scores: Scores{
			Novelty:       res.novelty.Score,
			Inventiveness: res.inventiveness.Score,
			Utility:       res.utility.Score,
		},
		TokensUsed:    tokens,
		PriorArtCount: len(res.priorArt),
	}, nil
}

func (o *Orchestrator) searchPriorArt(ctx context.Context, title string) []priorart.Item {
	if o.Search == nil {
		return []priorart.Item{}
	}
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.priorart")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout())
	defer cancel()
	return o.Search.Search(ctx, title)
}

func (o *Orchestrator) scoreSequentially(ctx context.Context, analysisID string, req Request, res *stageResults) error {
	if err := o.runNovelty(ctx, req, res); err != nil {
		return err
	}
	if err := o.appendNovelty(ctx, analysisID, res); err != nil {
		return err
	}
	if err := o.runInventiveness(ctx, req, res); err != nil {
		return err
	}
	if err := o.appendInventiveness(ctx, analysisID, res); err != nil {
		return err
	}
	if err := o.runUtility(ctx, req, res); err != nil {
		return err
	}
	return o.appendUtility(ctx, analysisID, res)
}

// scoreConcurrently overlaps utility with the novelty and inventiveness chain.
// The first failure cancels the other branch. Reports are appended afterwards
// in pipeline order, stopping at the first stage that produced no result, so
// partial runs keep the same shape as sequential ones.
func (o *Orchestrator) scoreConcurrently(ctx context.Context, analysisID string, req Request, res *stageResults) error {
	var (
		chain, util       stageResults
		chainErr, utilErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if chainErr = o.runNovelty(gctx, req, &chain); chainErr != nil {
			return chainErr
		}
		chainErr = o.runInventiveness(gctx, req, &chain)
		return chainErr
	})
	g.Go(func() error {
		utilErr = o.runUtility(gctx, req, &util)
		return utilErr
	})
	groupErr := g.Wait()

	res.novelty = chain.novelty
	res.inventiveness = chain.inventiveness
	res.utility = util.utility

	if res.novelty == nil {
		return rootCause(ctx, chainErr, utilErr, groupErr)
	}
	if err := o.appendNovelty(ctx, analysisID, res); err != nil {
		return err
	}
	if res.inventiveness == nil {
		return rootCause(ctx, chainErr, utilErr, groupErr)
	}
	if err := o.appendInventiveness(ctx, analysisID, res); err != nil {
		return err
	}
	if res.utility == nil {
		return rootCause(ctx, utilErr, chainErr, groupErr)
	}
	return o.appendUtility(ctx, analysisID, res)
}

// rootCause prefers the error of the stage that stopped the pipeline unless
// that stage only failed because the other branch cancelled the group.
func rootCause(ctx context.Context, own, other, group error) error {
	if own == nil {
		return group
	}
	if other != nil && ctx.Err() == nil && errors.Is(own, context.Canceled) && !errors.Is(other, context.Canceled) {
		return other
	}
	return own
}

func (o *Orchestrator) runNovelty(ctx context.Context, req Request, res *stageResults) error {
	return o.stage(ctx, StageNovelty, func(ctx context.Context) error {
		out, err := o.Scorer.Novelty(ctx, req.invention(), res.priorArt)
		if err != nil {
			return err
		}
		res.novelty = &out
		return nil
	})
}

func (o *Orchestrator) runInventiveness(ctx context.Context, req Request, res *stageResults) error {
	return o.stage(ctx, StageInventiveness, func(ctx context.Context) error {
		out, err := o.Scorer.Inventiveness(ctx, req.Title, res.novelty.Score)
		if err != nil {
			return err
		}
		res.inventiveness = &out
		return nil
	})
}

func (o *Orchestrator) runUtility(ctx context.Context, req Request, res *stageResults) error {
	return o.stage(ctx, StageUtility, func(ctx context.Context) error {
		out, err := o.Scorer.Utility(ctx, req.Title, req.TechnicalContent)
		if err != nil {
			return err
		}
		res.utility = &out
		return nil
	})
}

// stage runs fn under its own span and timeout and tags failures with the stage name.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline."+name)
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout())
	defer cancel()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		return &StageError{Stage: name, Err: err}
	}
	return nil
}

func (o *Orchestrator) appendNovelty(ctx context.Context, analysisID string, res *stageResults) error {
	n := res.novelty
	return o.appendReport(ctx, analysisID, StageNovelty, analyses.ReportInput{
		Type:         analyses.ReportNovelty,
		Content:      n.Analysis,
		ScorePercent: n.Score,
		Summary:      strings.Join(n.Innovations, "; "),
		Details: map[string]any{
			"innovations":    n.Innovations,
			"prior_art":      res.priorArt,
			"prior_art_hits": len(res.priorArt),
		},
	})
}

func (o *Orchestrator) appendInventiveness(ctx context.Context, analysisID string, res *stageResults) error {
	i := res.inventiveness
	return o.appendReport(ctx, analysisID, StageInventiveness, analyses.ReportInput{
		Type:         analyses.ReportInventiveness,
		Content:      i.Analysis,
		ScorePercent: i.Score,
		Details:      map[string]any{"non_obvious": i.NonObvious},
	})
}

func (o *Orchestrator) appendUtility(ctx context.Context, analysisID string, res *stageResults) error {
	u := res.utility
	return o.appendReport(ctx, analysisID, StageUtility, analyses.ReportInput{
		Type:         analyses.ReportUtility,
		Content:      u.Analysis,
		ScorePercent: u.Score,
		Details:      map[string]any{"industrial_applicability": u.IndustrialApplicability},
	})
}

func (o *Orchestrator) appendReport(ctx context.Context, analysisID, stage string, in analyses.ReportInput) error {
	if _, err := o.Store.AppendReport(ctx, analysisID, in); err != nil {
		return &StageError{Stage: stage, AnalysisID: analysisID, Err: err}
	}
	return nil
}

// fail marks the analysis failed with the triggering error's text. The write
// uses a detached context so a cancelled caller still leaves a terminal record.
func (o *Orchestrator) fail(ctx context.Context, span trace.Span, a analyses.Analysis, startedAt time.Time, err error) error {
	var se *StageError
	if !errors.As(err, &se) {
		se = &StageError{Stage: "unknown", Err: err}
	}
	se.AnalysisID = a.ID

	msg := sanitizeError(se.Err)
	if updateErr := o.Store.SetStatus(telemetry.Detach(ctx), a.ID, analyses.StatusFailed, &msg); updateErr != nil {
		telemetry.Error("analysis.fail_update_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"analysis_id": a.ID,
			"error":       updateErr,
			"cause":       msg,
		})
	}
	span.RecordError(se.Err)
	span.SetStatus(codes.Error, se.Stage+" failed")

	metrics.IncAnalysisFailed(se.Stage)
	metrics.ObserveAnalysisDurationMs(float64(time.Since(startedAt).Microseconds()) / 1000.0)
	logStatus(ctx, a, analyses.StatusFailed, "processing->failed", map[string]any{
		"stage":         se.Stage,
		"error_message": msg,
		"duration_ms":   time.Since(startedAt).Milliseconds(),
	})
	return se
}

func (o *Orchestrator) recordUsage(ctx context.Context, a analyses.Analysis, tokens int) {
	if o.Ledger == nil {
		return
	}
	provider := o.Scorer.Provider()
	entry := o.Pricing.Entry(a.UserID, a.ID, provider, tokens)
	metrics.AddTokens(provider, entry.TokensUsed)
	if _, err := o.Ledger.Record(telemetry.Detach(ctx), entry); err != nil {
		telemetry.Warn("usage.record_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"analysis_id": a.ID,
			"error":       err,
		})
	}
}

func (o *Orchestrator) archive(ctx context.Context, analysisID string) {
	if o.Archiver == nil {
		return
	}
	ctx = telemetry.Detach(ctx)
	awr, err := o.Store.GetAnalysisWithReports(ctx, analysisID)
	if err == nil {
		err = o.Archiver.Archive(ctx, awr)
	}
	if err != nil {
		telemetry.Warn("report.archive_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"analysis_id": analysisID,
			"error":       err,
		})
	}
}

func (o *Orchestrator) stageTimeout() time.Duration {
	if o.StageTimeout > 0 {
		return o.StageTimeout
	}
	return DefaultStageTimeout
}

func logStatus(ctx context.Context, a analyses.Analysis, status, transition string, extra map[string]any) {
	fields := map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"user_id":           a.UserID,
		"analysis_id":       a.ID,
		"status":            status,
		"status_transition": transition,
	}
	for k, v := range extra {
		fields[k] = v
	}
	if status == analyses.StatusFailed {
		telemetry.Warn("analysis.status", fields)
		return
	}
	telemetry.Info("analysis.status", fields)
}
