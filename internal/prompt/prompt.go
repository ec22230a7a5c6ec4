// Package prompt assembles the two strings every translation call is made
// of: the stable per-volume system instruction (cacheable) and the
// per-chapter user prompt.
package prompt

import (
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"honyaku/internal/bible"
	"honyaku/internal/continuity"
	"honyaku/internal/manifest"
)

//go:embed assets
var assets embed.FS

// DefaultGenre is the style guide used when the manifest genre is missing
// or has no dedicated guide.
const DefaultGenre = "romcom_school_life"

// Builder assembles the system instruction from its layered inputs. All
// fields are set once during orchestrator initialization; the builder is
// read-only afterwards.
type Builder struct {
	Lang     string
	Genre    string
	Bible    *bible.SeriesBible
	Roster   map[string]string
	Glossary map[string]string
	Profiles []manifest.CharacterProfile
	Semantic *manifest.SemanticMetadata
	Pack     *continuity.Pack

	Logger *slog.Logger
}

// MasterPrompt returns the embedded master translator prompt for a target
// language.
func MasterPrompt(lang string) (string, error) {
	name := "assets/master_en.tmpl"
	if manifest.IsVietnamese(lang) {
		name = "assets/master_vi.tmpl"
	}
	data, err := assets.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to load master prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// GenreGuide returns the style guide for a genre, falling back to the
// default guide for unknown genres.
func GenreGuide(genre string, logger *slog.Logger) string {
	if genre == "" {
		genre = DefaultGenre
	}
	data, err := assets.ReadFile("assets/genres/" + genre + ".tmpl")
	if err != nil {
		if logger != nil && genre != DefaultGenre {
			logger.Debug("no style guide for genre, using default", "genre", genre)
		}
		data, err = assets.ReadFile("assets/genres/" + DefaultGenre + ".tmpl")
		if err != nil {
			return ""
		}
	}
	return strings.TrimSpace(string(data))
}

// SystemInstruction layers the stable per-volume sections in fixed order:
// master prompt, genre guide, bible block, roster, glossary, semantic
// metadata, continuity. The result is what gets cached provider-side.
func (b *Builder) SystemInstruction() (string, error) {
	master, err := MasterPrompt(b.Lang)
	if err != nil {
		return "", err
	}

	sections := []string{master, GenreGuide(b.Genre, b.Logger)}

	if b.Bible != nil {
		sections = append(sections, strings.TrimSpace(b.Bible.PromptBlock()))
		if d := b.Bible.WorldSettingDirective(); d != "" {
			sections = append(sections, d)
		}
	}

	if block := formatMap("CHARACTER ROSTER", b.Roster); block != "" {
		sections = append(sections, block)
	}
	if block := formatMap("GLOSSARY (authoritative, use these renderings exactly)", b.Glossary); block != "" {
		sections = append(sections, block)
	}
	if block := b.formatSemantic(); block != "" {
		sections = append(sections, block)
	}
	if b.Pack != nil {
		if block := strings.TrimSpace(b.Pack.Format()); block != "" {
			sections = append(sections, block)
		}
	}

	var out []string
	for _, s := range sections {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n"), nil
}

// formatMap renders a JP→target map as a sorted prompt section.
func formatMap(heading string, m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("=== " + heading + " ===\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s → %s\n", k, m[k])
	}
	return strings.TrimSpace(sb.String())
}

// formatSemantic renders speech fingerprints, keigo switches, RTAS
// relationships, scene contexts, and translation guidelines.
func (b *Builder) formatSemantic() string {
	if len(b.Profiles) == 0 && b.Semantic == nil {
		return ""
	}
	var sb strings.Builder

	if len(b.Profiles) > 0 {
		sb.WriteString("=== CHARACTER VOICES ===\n")
		for _, p := range b.Profiles {
			name := p.NameEN
			if name == "" {
				name = p.NameJP
			}
			if name == "" {
				continue
			}
			sb.WriteString(name)
			if p.Role != "" {
				sb.WriteString(" (" + p.Role + ")")
			}
			sb.WriteString(":\n")
			if p.VoiceSpec != "" {
				sb.WriteString("  voice: " + p.VoiceSpec + "\n")
			}
			if p.SpeechFingerprint != "" {
				sb.WriteString("  speech: " + p.SpeechFingerprint + "\n")
			}
			if p.ContractionRate > 0 {
				fmt.Fprintf(&sb, "  contraction rate: %.0f%%\n", p.ContractionRate*100)
			}
			for _, k := range sortedKeys(p.KeigoSwitch) {
				fmt.Fprintf(&sb, "  keigo toward %s: %s\n", k, p.KeigoSwitch[k])
			}
			for _, k := range sortedKeys(p.RefersToOthers) {
				fmt.Fprintf(&sb, "  calls %s: %s\n", k, p.RefersToOthers[k])
			}
			for _, rel := range p.Relationships {
				fmt.Fprintf(&sb, "  relationship: %s (%s", rel.Target, rel.Type)
				if rel.Score > 0 {
					fmt.Fprintf(&sb, ", closeness %.2f", rel.Score)
				}
				if rel.ContractionRate > 0 {
					fmt.Fprintf(&sb, ", contractions %.0f%%", rel.ContractionRate*100)
				}
				sb.WriteString(")\n")
			}
		}
	}

	if b.Semantic != nil {
		if len(b.Semantic.SceneContexts) > 0 {
			sb.WriteString("=== SCENE CONTEXTS ===\n")
			for _, sc := range b.Semantic.SceneContexts {
				sb.WriteString(sc.Scene)
				if sc.Register != "" {
					sb.WriteString(" [" + sc.Register + "]")
				}
				if sc.Notes != "" {
					sb.WriteString(": " + sc.Notes)
				}
				sb.WriteString("\n")
			}
		}
		if len(b.Semantic.TranslationGuidelines) > 0 {
			sb.WriteString("=== TRANSLATION GUIDELINES ===\n")
			for _, g := range b.Semantic.TranslationGuidelines {
				sb.WriteString("- " + g + "\n")
			}
		}
	}

	return strings.TrimSpace(sb.String())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ChapterInput carries the per-chapter pieces of the user prompt. Empty
// guidance fields are skipped.
type ChapterInput struct {
	Title           string
	PrevContext     string
	SourceBody      string
	SinoGuidance    string
	GapGuidance     string
	DialectGuidance string
	PatternGuidance string
	VisualGuidance  string
}

// UserPrompt assembles the per-chapter prompt in fixed order: context,
// title, source body, then the guidance blocks.
func UserPrompt(in ChapterInput) string {
	var parts []string

	if in.PrevContext != "" {
		parts = append(parts, "Previous chapter context:\n"+strings.TrimSpace(in.PrevContext))
	}
	if in.Title != "" {
		parts = append(parts, "Chapter title: "+in.Title)
	}
	parts = append(parts, "Translate the following chapter:\n\n"+strings.TrimSpace(in.SourceBody))

	for _, block := range []string{
		in.SinoGuidance,
		in.GapGuidance,
		in.DialectGuidance,
		in.PatternGuidance,
		in.VisualGuidance,
	} {
		if block = strings.TrimSpace(block); block != "" {
			parts = append(parts, block)
		}
	}

	return strings.Join(parts, "\n\n")
}
