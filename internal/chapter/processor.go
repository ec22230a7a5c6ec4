// Package chapter translates one chapter at a time: source load,
// detections, RAG guidance, visual guidance, the LLM call, and output
// cleanup. The processor never touches the manifest or the translation
// log; it returns a result and the orchestrator owns all metadata.
package chapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"honyaku/internal/detect"
	"honyaku/internal/gemini"
	"honyaku/internal/manifest"
	"honyaku/internal/prompt"
	"honyaku/internal/rag"
	"honyaku/internal/visual"
)

// kanjiCompoundLimit bounds the Sino-Vietnamese lookup batch per chapter.
const kanjiCompoundLimit = 30

// Processor holds the per-volume collaborators a chapter translation needs.
// All fields are wired once by the orchestrator and read-only afterwards.
type Processor struct {
	Client  *gemini.Client
	Builder *prompt.Builder

	Lang  string
	Genre string

	// Glossary is the merged JP→target map used for canon-name
	// enforcement in visual guidance.
	Glossary map[string]string

	Visual       *visual.Cache
	SinoStore    *rag.Store
	GrammarStore *rag.Store

	EnableGaps   bool
	EnableVisual bool

	// ThinkingDir, when set, receives one transcript file per chapter
	// that produced thought parts.
	ThinkingDir string

	Logger *slog.Logger
}

// Request identifies one chapter translation.
type Request struct {
	ChapterID  string
	SourcePath string
	OutputPath string
	Title      string

	// Model overrides the client default when set.
	Model string

	// CachedContent is the orchestrator-owned volume cache name, passed
	// by value. Empty means the processor decides between the client's
	// internal cache and a fresh system instruction.
	CachedContent string

	// PrevContext is a short brief of the previous chapter, if any.
	PrevContext string
}

// Result is the structured outcome of one chapter translation.
type Result struct {
	ChapterID  string
	Success    bool
	Error      string
	OutputPath string
	ModelUsed  string

	SafetyBlocked bool
	InputTokens   int
	OutputTokens  int
	CachedTokens  int
	Attempts      int
	UsedCache     bool
	UsedVisual    bool

	Warnings []string
	Audit    *Audit
}

// Audit is the quick post-translation quality check.
type Audit struct {
	LengthRatio    float64
	CJKLeaks       int
	AnalysisLeaks  int
	UntranslatedJP bool
}

func (p *Processor) failure(chapterID string, err error) *Result {
	return &Result{ChapterID: chapterID, Success: false, Error: err.Error()}
}

// Translate runs the full chapter flow. Every failure mode yields a
// structured result; only programmer errors escape as panics.
func (p *Processor) Translate(ctx context.Context, req Request) *Result {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	source, _, err := loadSource(req.SourcePath)
	if err != nil {
		return p.failure(req.ChapterID, err)
	}

	var gapBlock string
	if p.EnableGaps {
		gapBlock = detect.FormatGaps(detect.FindGaps(source))
	}
	dialectBlock := detect.DetectDialect(source)

	sinoBlock, patternBlock := p.ragGuidance(ctx, source, req.Title, logger)

	var visualGuidance *visual.Guidance
	if p.EnableVisual && p.Visual != nil {
		ids := visual.ExtractIDs(source)
		visualGuidance = visual.BuildGuidance(p.Visual, ids, p.Glossary)
		if visualGuidance != nil {
			logger.Debug("visual guidance injected",
				"chapter", req.ChapterID, "illustrations", len(ids))
		}
	}

	model := req.Model
	if model == "" {
		model = p.Client.Model()
	}

	// With any cache in play the system instruction is already baked in
	// provider-side; sending it again would double it.
	systemInstruction := ""
	usedCache := req.CachedContent != "" || p.Client.CacheValid(model)
	if !usedCache {
		systemInstruction, err = p.Builder.SystemInstruction()
		if err != nil {
			return p.failure(req.ChapterID, err)
		}
	}

	in := prompt.ChapterInput{
		Title:           req.Title,
		PrevContext:     req.PrevContext,
		SourceBody:      source,
		SinoGuidance:    sinoBlock,
		GapGuidance:     gapBlock,
		DialectGuidance: dialectBlock,
		PatternGuidance: patternBlock,
	}
	if visualGuidance != nil {
		in.VisualGuidance = visualGuidance.Block
	}

	resp, err := p.Client.Generate(ctx, &gemini.Request{
		Prompt:            prompt.UserPrompt(in),
		SystemInstruction: systemInstruction,
		Model:             req.Model,
		CachedContent:     req.CachedContent,
	})
	if err != nil {
		return p.failure(req.ChapterID, err)
	}

	result := &Result{
		ChapterID:    req.ChapterID,
		ModelUsed:    resp.ModelUsed,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CachedTokens: resp.CachedTokens,
		Attempts:     resp.Attempts,
		UsedCache:    usedCache,
		UsedVisual:   visualGuidance != nil,
	}

	if resp.SafetyBlocked() {
		result.SafetyBlocked = true
		result.Error = "blocked by safety filter: " + resp.FinishReason
		return result
	}

	p.saveThinking(req.ChapterID, resp.ThinkingContent, logger)

	output := StripFences(resp.Content)
	if req.Title != "" {
		output = "# " + req.Title + "\n\n" + output
	}
	output = FormatSceneBreaks(output)

	if visualGuidance != nil {
		for _, w := range visual.DetectAnalysisLeaks(output) {
			result.Warnings = append(result.Warnings, w)
			logger.Warn("analysis leak in output", "chapter", req.ChapterID, "warning", w)
		}
		for _, phrase := range visualGuidance.DoNotReveal {
			if phrase != "" && strings.Contains(output, phrase) {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("spoiler phrase surfaced early: %q", phrase))
			}
		}
	}

	cjkLeaks := 0
	if manifest.IsVietnamese(p.Lang) {
		output, cjkLeaks = ScrubCJK(output)
		if cjkLeaks > 0 {
			logger.Warn("CJK characters remain after scrub",
				"chapter", req.ChapterID, "count", cjkLeaks)
		}
	}

	if err := writeAtomic(req.OutputPath, output); err != nil {
		return p.failure(req.ChapterID, err)
	}

	result.Audit = p.audit(source, output, resp, cjkLeaks, len(result.Warnings))
	result.OutputPath = req.OutputPath
	result.Success = true
	return result
}

// ragGuidance runs the target-conditional pattern lookups. Failures degrade
// to missing guidance, never to a failed chapter.
func (p *Processor) ragGuidance(ctx context.Context, source, title string, logger *slog.Logger) (sino, pattern string) {
	genre := p.Genre

	if manifest.IsVietnamese(p.Lang) && p.SinoStore != nil {
		compounds := detect.ExtractKanjiCompounds(source, kanjiCompoundLimit)
		if len(compounds) > 0 {
			g, err := p.SinoStore.GetBulkGuidance(ctx, compounds, genre, title, 0, nil, logger)
			if err != nil {
				logger.Warn("sino-vietnamese lookup failed", "error", err)
			} else {
				sino = rag.FormatGuidance("SINO-VIETNAMESE RENDERINGS", g.HighConfidence)
			}
		}
	}

	if p.GrammarStore != nil {
		patterns := detect.DetectGrammarPatterns(source)
		if len(patterns) > 0 {
			g, err := p.GrammarStore.GetBulkGuidance(ctx, patterns, genre, title, 0, nil, logger)
			if err != nil {
				logger.Warn("grammar-pattern lookup failed", "error", err)
			} else {
				pattern = rag.FormatGuidance("GRAMMAR PATTERN GUIDANCE", g.HighConfidence)
			}
		}
	}
	return sino, pattern
}

// saveThinking writes the thought transcript when a thinking dir is set.
func (p *Processor) saveThinking(chapterID, thinking string, logger *slog.Logger) {
	if p.ThinkingDir == "" || thinking == "" {
		return
	}
	if err := os.MkdirAll(p.ThinkingDir, 0o755); err != nil {
		logger.Warn("failed to create thinking dir", "error", err)
		return
	}
	path := filepath.Join(p.ThinkingDir, chapterID+"_THINKING.md")
	if err := os.WriteFile(path, []byte(thinking), 0o644); err != nil {
		logger.Warn("failed to save thinking transcript", "chapter", chapterID, "error", err)
	}
}

// lengthRatio sanity bounds: outside these the output is suspect.
const (
	minLengthRatio = 0.3
	maxLengthRatio = 4.0
)

// audit computes the quick quality metrics attached to a successful chapter.
func (p *Processor) audit(source, output string, resp *gemini.Response, cjkLeaks, warnings int) *Audit {
	a := &Audit{
		CJKLeaks:      cjkLeaks,
		AnalysisLeaks: warnings,
	}
	if len(source) > 0 {
		a.LengthRatio = float64(len(output)) / float64(len(source))
	}
	if !manifest.IsVietnamese(p.Lang) {
		// English output should carry no kana at all.
		a.UntranslatedJP = containsKana(output)
	}
	if resp.FinishReason == gemini.FinishMaxTokens {
		a.LengthRatio = -a.LengthRatio // truncation marker for the log
	}
	return a
}

// Suspicious reports whether the audit warrants a logged warning.
func (a *Audit) Suspicious() bool {
	if a == nil {
		return false
	}
	r := a.LengthRatio
	if r < 0 {
		return true
	}
	return r < minLengthRatio || r > maxLengthRatio || a.UntranslatedJP
}

func containsKana(s string) bool {
	for _, r := range s {
		if (r >= 'ぁ' && r <= 'ゖ') || (r >= 'ァ' && r <= 'ヺ') {
			return true
		}
	}
	return false
}

// loadSource reads a chapter and strips the leading JP H1 title, returning
// the body and the stripped title.
func loadSource(path string) (body, title string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read chapter source: %w", err)
	}
	text := strings.TrimLeft(string(data), "\uFEFF\n\r\t ")
	if strings.HasPrefix(text, "# ") {
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			title = strings.TrimSpace(text[2:idx])
			text = strings.TrimLeft(text[idx+1:], "\n\r")
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", "", fmt.Errorf("chapter source %s is empty", path)
	}
	return text, title, nil
}

// writeAtomic writes the chapter output via write-temp + rename.
func writeAtomic(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace output: %w", err)
	}
	return nil
}
