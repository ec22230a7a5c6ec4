// Package agent owns the volume translation lifecycle: initialization
// order, the provider-side volume cache, the sequential per-chapter loop
// with model fallback, continuity aggregation, and finalization.
//
// Translation is deliberately single-threaded per chapter. Rate limits are
// per-account, each chapter conditions on the previous one's continuity,
// and cache hits depend on ordered reuse.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"honyaku/internal/bible"
	"honyaku/internal/chapter"
	"honyaku/internal/config"
	"honyaku/internal/continuity"
	"honyaku/internal/gemini"
	"honyaku/internal/manifest"
	"honyaku/internal/prompt"
	"honyaku/internal/rag"
	"honyaku/internal/txlog"
	"honyaku/internal/visual"
	"honyaku/internal/workdir"
)

// Sentinel errors for the agent package.
var (
	// ErrNoChapters is returned when the selector matches nothing.
	ErrNoChapters = errors.New("no chapters to translate")
)

// Options are the per-run knobs, layered over config by the CLI.
type Options struct {
	// Chapters selects specific chapter ids; empty means all.
	Chapters []string

	// Force re-translates chapters already marked completed.
	Force bool

	EnableContinuity bool
	EnableGaps       bool
	EnableVisual     bool
}

// Summary is the outcome of a volume run.
type Summary struct {
	VolumeID       string
	State          string
	Completed      int
	Failed         int
	Skipped        int
	FailedChapters []string
}

// Orchestrator drives translate-volume runs. One orchestrator serves one
// process; the client's internal cache is single-owner within it.
type Orchestrator struct {
	work   *workdir.Dir
	cfg    *config.Config
	client *gemini.Client
	stores map[rag.Kind]*rag.Store
	logger *slog.Logger

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Orchestrator. stores may be nil or partial; missing
// stores simply disable the corresponding guidance.
func New(work *workdir.Dir, cfg *config.Config, client *gemini.Client, stores map[rag.Kind]*rag.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		work:   work,
		cfg:    cfg,
		client: client,
		stores: stores,
		logger: logger,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TranslateVolume runs the full volume lifecycle and returns a summary.
// A summary with State == partial is not an error; hard initialization
// failures (invalid manifest, missing volume) are.
func (o *Orchestrator) TranslateVolume(ctx context.Context, volumeID string, opts Options) (*Summary, error) {
	lang := o.cfg.Translator.TargetLanguage
	logger := o.logger.With("volume", volumeID, "lang", lang)

	m, err := manifest.Load(o.work.ManifestPath(volumeID))
	if err != nil {
		return nil, err
	}
	if err := manifest.Preflight(m); err != nil {
		return nil, err
	}

	// Bible resolution. A standalone volume is normal, not an error.
	var vb *bible.SeriesBible
	resolver, err := bible.NewResolver(o.work.BiblesPath(), logger)
	if err != nil {
		logger.Warn("bible registry unavailable", "error", err)
	} else {
		b, match, resolveErr := resolver.Resolve(m.BibleID, m.VolumeID, m.Metadata.Series, m.Metadata.Title)
		switch {
		case errors.Is(resolveErr, bible.ErrNoMatch):
			logger.Info("no series bible matched, translating standalone")
		case resolveErr != nil:
			return nil, resolveErr
		default:
			vb = b
			logger.Info("series bible resolved", "match", match.String())
			linkResolvedVolume(resolver, match, m.VolumeID, logger)
		}
	}

	var pack *continuity.Pack
	if opts.EnableContinuity {
		pack, err = continuity.Load(o.work.ContinuityPackPath(volumeID))
		if err != nil {
			return nil, err
		}
	}

	roster, glossary, profiles, semantic := mergeVolumeContext(m, lang, vb, pack)

	builder := &prompt.Builder{
		Lang:     lang,
		Genre:    m.Metadata.Genre,
		Bible:    vb,
		Roster:   roster,
		Glossary: glossary,
		Profiles: profiles,
		Semantic: semantic,
		Pack:     pack,
		Logger:   logger,
	}

	var visualCache *visual.Cache
	if opts.EnableVisual {
		visualCache, err = visual.LoadCache(o.work.VisualCachePath(volumeID))
		if err != nil {
			return nil, err
		}
		if visualCache == nil {
			logger.Info("no visual cache, running text-only")
		}
	}

	targets, err := selectChapters(m, opts.Chapters)
	if err != nil {
		return nil, err
	}

	if n := manifest.NormalizeTitles(m, lang); n > 0 {
		logger.Info("chapter titles normalized", "count", n)
	}

	thinkingDir := ""
	if o.cfg.Thinking.SaveToFile {
		thinkingDir = o.work.ThinkingDir(volumeID)
	}

	proc := &chapter.Processor{
		Client:       o.client,
		Builder:      builder,
		Lang:         lang,
		Genre:        m.Metadata.Genre,
		Glossary:     glossary,
		Visual:       visualCache,
		SinoStore:    o.stores[rag.KindSinoVietnamese],
		GrammarStore: o.grammarStore(lang),
		EnableGaps:   opts.EnableGaps,
		EnableVisual: opts.EnableVisual,
		ThinkingDir:  thinkingDir,
		Logger:       logger,
	}

	recorder := txlog.NewRecorder(o.work.TranslationLogPath(volumeID), logger)

	m.PipelineState.Translator.Status = manifest.StateInProgress
	m.PipelineState.Translator.TargetLanguage = lang
	m.PipelineState.Translator.Model = o.client.Model()
	m.PipelineState.Translator.StartedAt = manifest.Timestamp(time.Now())
	m.PipelineState.Translator.FailedChapters = nil
	if err := m.Save(); err != nil {
		return nil, err
	}

	volumeCache := o.createVolumeCache(ctx, volumeID, builder, targets, logger)

	summary := o.runChapterLoop(ctx, m, volumeID, lang, targets, proc, recorder, volumeCache, opts, logger)

	o.finalize(ctx, m, volumeID, volumeCache, summary, opts, logger)
	return summary, nil
}

// linkResolvedVolume records a title-matched volume under its series so the
// next run resolves by short id instead of fuzzy title. Failures are logged,
// never fatal: the current run already has its bible.
func linkResolvedVolume(resolver *bible.Resolver, match *bible.Match, volumeID string, logger *slog.Logger) {
	if match.Rule != "substring" && match.Rule != "fuzzy" {
		return
	}
	short := bible.ShortID(volumeID)
	if short == "" {
		return
	}
	if err := resolver.Index().LinkVolume(match.SeriesID, short); err != nil {
		logger.Warn("volume link failed", "series", match.SeriesID, "short_id", short, "error", err)
		return
	}
	if err := resolver.Index().Save(); err != nil {
		logger.Warn("bible index save failed", "error", err)
		return
	}
	logger.Info("volume linked to series", "series", match.SeriesID, "short_id", short)
}

// grammarStore picks the pattern store matching the target language.
func (o *Orchestrator) grammarStore(lang string) *rag.Store {
	if manifest.IsVietnamese(lang) {
		return o.stores[rag.KindVietnameseGrammar]
	}
	return o.stores[rag.KindEnglish]
}

// mergeVolumeContext layers bible, continuity, and manifest data into the
// effective roster and glossary. Later layers win: bible, then continuity,
// then the manifest's locked glossary.
func mergeVolumeContext(m *manifest.Manifest, lang string, vb *bible.SeriesBible, pack *continuity.Pack) (roster, glossary map[string]string, profiles []manifest.CharacterProfile, semantic *manifest.SemanticMetadata) {
	roster = make(map[string]string)
	glossary = make(map[string]string)

	if vb != nil {
		glossary = continuity.MergeMaps(glossary, vb.FlatGlossary())
	}
	if pack != nil {
		roster = continuity.MergeMaps(roster, pack.Roster)
		glossary = continuity.MergeMaps(glossary, pack.Glossary)
	}
	if lm := m.Lang(lang); lm != nil {
		roster = continuity.MergeMaps(roster, lm.CharacterNames)
		glossary = continuity.MergeMaps(glossary, lm.LockedGlossary)
		profiles = lm.CharacterProfiles
		semantic = lm.SemanticMetadata
	}
	return roster, glossary, profiles, semantic
}

// selectChapters resolves the chapter selector against the manifest.
func selectChapters(m *manifest.Manifest, ids []string) ([]*manifest.Chapter, error) {
	if len(ids) == 0 {
		if len(m.Chapters) == 0 {
			return nil, ErrNoChapters
		}
		return m.Chapters, nil
	}
	var out []*manifest.Chapter
	for _, id := range ids {
		ch, ok := m.ChapterByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: unknown chapter %q", manifest.ErrInvalid, id)
		}
		out = append(out, ch)
	}
	return out, nil
}

// createVolumeCache tries the full-volume cache first, then a prompt-only
// cache, then gives up and runs uncached. Only the full-volume cache name
// is returned; a warm prompt-only cache lives inside the client.
func (o *Orchestrator) createVolumeCache(ctx context.Context, volumeID string, builder *prompt.Builder, targets []*manifest.Chapter, logger *slog.Logger) string {
	sysInstr, err := builder.SystemInstruction()
	if err != nil {
		logger.Warn("system instruction build failed, running uncached", "error", err)
		return ""
	}

	ttl := time.Duration(o.cfg.Translator.VolumeCacheTTLSeconds) * time.Second
	contents := o.volumeCacheContents(volumeID, targets, logger)

	if len(contents) > 0 {
		name, err := o.client.CreateCache(ctx, "", sysInstr, contents, ttl, volumeID+"_full")
		if err == nil {
			logger.Info("volume cache created", "cache", name, "chapters", len(contents))
			return name
		}
		logger.Warn("volume cache creation failed, trying prompt-only cache", "error", err)
	}

	if _, err := o.client.WarmCache(ctx, "", sysInstr, ttl, volumeID+"_prompt"); err != nil {
		logger.Warn("prompt-only cache creation failed, running uncached", "error", err)
	}
	return ""
}

// volumeCacheContents wraps every JP chapter for the provider-side cache.
func (o *Orchestrator) volumeCacheContents(volumeID string, targets []*manifest.Chapter, logger *slog.Logger) []string {
	var parts []string
	for _, ch := range targets {
		data, err := os.ReadFile(o.work.SourcePath(volumeID, ch.SourceFile))
		if err != nil {
			logger.Warn("chapter source unreadable, excluded from cache",
				"chapter", ch.ID, "error", err)
			continue
		}
		parts = append(parts, fmt.Sprintf("<CHAPTER id=%q canonical_title=%q source_file=%q>\n%s\n</CHAPTER>",
			ch.ID, manifest.CanonicalTitle(ch.ID), ch.SourceFile, strings.TrimSpace(string(data))))
	}
	return parts
}

// runChapterLoop is the sequential heart of the run: one chapter at a
// time, manifest durable before the next starts.
func (o *Orchestrator) runChapterLoop(ctx context.Context, m *manifest.Manifest, volumeID, lang string, targets []*manifest.Chapter, proc *chapter.Processor, recorder *txlog.Recorder, volumeCache string, opts Options, logger *slog.Logger) *Summary {
	summary := &Summary{VolumeID: volumeID}
	prevContext := ""

	for i, ch := range targets {
		if ctx.Err() != nil {
			logger.Warn("run interrupted, stopping before next chapter", "chapter", ch.ID)
			summary.Failed++
			summary.FailedChapters = append(summary.FailedChapters, ch.ID)
			break
		}

		outputPath := o.work.OutputPath(volumeID, lang, ch.ID)
		if ch.TranslationStatus == manifest.StatusCompleted && !opts.Force {
			if _, err := os.Stat(outputPath); err == nil {
				logger.Info("Skipping completed chapter " + ch.ID)
				summary.Skipped++
				continue
			}
		}

		req := chapter.Request{
			ChapterID:   ch.ID,
			SourcePath:  o.work.SourcePath(volumeID, ch.SourceFile),
			OutputPath:  outputPath,
			Title:       ch.Title(lang),
			Model:       ch.Model,
			PrevContext: prevContext,
		}
		// The volume cache was built for the default model; an override
		// must not ride it.
		if ch.Model == "" || ch.Model == o.client.Model() {
			req.CachedContent = volumeCache
		}

		result := proc.Translate(ctx, req)

		// Safety blocks and empty output fall through to the fallback
		// model, uncached: the internal cache is model-specific.
		if !result.Success && ch.Model == "" && o.cfg.Gemini.FallbackModel != "" {
			logger.Warn("translation failed, retrying with fallback model",
				"chapter", ch.ID, "fallback", o.cfg.Gemini.FallbackModel, "error", result.Error)
			o.client.ClearCache()
			req.Model = o.cfg.Gemini.FallbackModel
			req.CachedContent = ""
			result = proc.Translate(ctx, req)
			if result.Success {
				ch.Model = o.cfg.Gemini.FallbackModel
			}
		}

		o.record(recorder, volumeID, lang, ch.ID, result)

		if result.Success {
			ch.TranslationStatus = manifest.StatusCompleted
			ch.SetOutputFile(lang, fmt.Sprintf("%s_%s.md", strings.ToUpper(ch.ID), strings.ToUpper(lang)))
			summary.Completed++

			if opts.EnableContinuity {
				o.snapshotChapter(volumeID, i+1, ch.ID, outputPath, proc, logger)
			}
			prevContext = fmt.Sprintf("%s (%s) has been translated.", manifest.CanonicalTitle(ch.ID), ch.ID)
		} else {
			ch.TranslationStatus = manifest.StatusFailed
			summary.Failed++
			summary.FailedChapters = append(summary.FailedChapters, ch.ID)
			logger.Error("chapter failed", "chapter", ch.ID, "error", result.Error)
		}

		if err := m.Save(); err != nil {
			logger.Error("manifest save failed", "error", err)
		}

		if i < len(targets)-1 {
			delay := time.Duration(o.cfg.Translator.UncachedDelaySeconds) * time.Second
			if volumeCache != "" || o.client.CacheName() != "" {
				delay = time.Duration(o.cfg.Translator.ChapterDelaySeconds) * time.Second
			}
			if err := o.sleep(ctx, delay); err != nil {
				continue
			}
		}
	}

	return summary
}

// record appends one translation-log entry for a chapter attempt.
func (o *Orchestrator) record(recorder *txlog.Recorder, volumeID, lang, chapterID string, result *chapter.Result) {
	e := txlog.NewEntry(volumeID, chapterID, lang)
	e.Model = result.ModelUsed
	e.UsedCache = result.UsedCache
	e.UsedVisual = result.UsedVisual
	e.Attempts = result.Attempts
	e.InputTokens = result.InputTokens
	e.OutputTokens = result.OutputTokens
	e.CachedTokens = result.CachedTokens
	e.Success = result.Success
	e.Error = result.Error
	if result.Audit != nil {
		e.Quality = &txlog.Quality{
			LengthRatio:    result.Audit.LengthRatio,
			CJKLeaks:       result.Audit.CJKLeaks,
			AnalysisLeaks:  result.Audit.AnalysisLeaks,
			UntranslatedJP: result.Audit.UntranslatedJP,
		}
	}
	recorder.Record(e)
}

// snapshotChapter extracts a continuity snapshot from a finished chapter
// and persists it into the pack. Failures are logged, never fatal.
func (o *Orchestrator) snapshotChapter(volumeID string, index int, chapterID, outputPath string, proc *chapter.Processor, logger *slog.Logger) {
	data, err := os.ReadFile(outputPath)
	if err != nil {
		logger.Warn("snapshot skipped, output unreadable", "chapter", chapterID, "error", err)
		return
	}
	packPath := o.work.ContinuityPackPath(volumeID)
	pack, err := continuity.Load(packPath)
	if err != nil {
		logger.Warn("snapshot skipped, pack unreadable", "error", err)
		return
	}
	if pack == nil {
		pack = continuity.New()
	}
	snap := continuity.Extract(chapterID, index, string(data), proc.Builder.Roster, proc.Glossary)
	pack.AddSnapshot(snap)
	if err := pack.Save(packPath); err != nil {
		logger.Warn("snapshot save failed", "chapter", chapterID, "error", err)
	}
}

// finalize sets the terminal pipeline state, aggregates continuity for the
// next volume, and deletes the provider-side caches.
func (o *Orchestrator) finalize(ctx context.Context, m *manifest.Manifest, volumeID, volumeCache string, summary *Summary, opts Options, logger *slog.Logger) {
	if summary.Failed == 0 {
		m.PipelineState.Translator.Status = manifest.StateCompleted
	} else {
		m.PipelineState.Translator.Status = manifest.StatePartial
	}
	summary.State = m.PipelineState.Translator.Status
	m.PipelineState.Translator.CompletedAt = manifest.Timestamp(time.Now())
	m.PipelineState.Translator.FailedChapters = summary.FailedChapters
	if err := m.Save(); err != nil {
		logger.Error("final manifest save failed", "error", err)
	}

	if summary.Failed == 0 && opts.EnableContinuity {
		packPath := o.work.ContinuityPackPath(volumeID)
		if pack, err := continuity.Load(packPath); err == nil && pack != nil && len(pack.ChapterSnapshots) > 0 {
			next := continuity.Aggregate(pack.ChapterSnapshots)
			if err := next.Save(packPath); err != nil {
				logger.Warn("continuity aggregation save failed", "error", err)
			} else {
				logger.Info("continuity pack aggregated for next volume",
					"roster", len(next.Roster), "glossary", len(next.Glossary))
			}
		}
	}

	if volumeCache != "" {
		if err := o.client.DeleteCache(ctx, volumeCache); err != nil {
			logger.Warn("volume cache deletion failed", "cache", volumeCache, "error", err)
		}
	}
	if err := o.client.Close(ctx); err != nil {
		logger.Warn("internal cache cleanup failed", "error", err)
	}

	logger.Info("volume run finished",
		"state", summary.State,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"skipped", summary.Skipped)
}
