// Package continuity carries cross-volume state: the character roster, the
// accumulated glossary, relationships, and narrative flags. A pack is read
// at the start of a volume run and a fresh pack is aggregated from chapter
// snapshots at the end, feeding the next volume.
package continuity

import (
	"encoding/json"
	"fmt"
	"os"
)

// Pack is the continuity_pack.json shape.
type Pack struct {
	Roster           map[string]string `json:"roster"`
	Glossary         map[string]string `json:"glossary"`
	Relationships    []Relationship    `json:"relationships,omitempty"`
	NarrativeFlags   []string          `json:"narrative_flags,omitempty"`
	ChapterSnapshots []Snapshot        `json:"chapter_snapshots,omitempty"`
}

// Relationship is one roster relationship carried across volumes.
type Relationship struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
	Note string `json:"note,omitempty"`
}

// Snapshot is the per-chapter continuity extract.
type Snapshot struct {
	ChapterID      string            `json:"chapter_id"`
	ChapterIndex   int               `json:"chapter_index"`
	Roster         map[string]string `json:"roster,omitempty"`
	Glossary       map[string]string `json:"glossary,omitempty"`
	Relationships  []Relationship    `json:"relationships,omitempty"`
	NarrativeFlags []string          `json:"narrative_flags,omitempty"`
}

// New returns an empty pack with initialized maps.
func New() *Pack {
	return &Pack{
		Roster:   make(map[string]string),
		Glossary: make(map[string]string),
	}
}

// Load reads a continuity pack. A missing file returns (nil, nil): the
// first volume of a series legitimately has no pack.
func Load(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read continuity pack: %w", err)
	}
	var p Pack
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse continuity pack: %w", err)
	}
	if p.Roster == nil {
		p.Roster = make(map[string]string)
	}
	if p.Glossary == nil {
		p.Glossary = make(map[string]string)
	}
	return &p, nil
}

// Save writes the pack atomically (write-temp + rename).
func (p *Pack) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal continuity pack: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write continuity pack: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace continuity pack: %w", err)
	}
	return nil
}

// MergeMaps layers override onto base without mutating either.
// Later (override) wins.
func MergeMaps(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// AddSnapshot appends a chapter snapshot, replacing any earlier snapshot
// for the same chapter (re-runs after failure must not duplicate).
func (p *Pack) AddSnapshot(s Snapshot) {
	for i, existing := range p.ChapterSnapshots {
		if existing.ChapterID == s.ChapterID {
			p.ChapterSnapshots[i] = s
			return
		}
	}
	p.ChapterSnapshots = append(p.ChapterSnapshots, s)
}

// Aggregate folds all chapter snapshots into a fresh pack for the next
// volume: union of rosters and glossaries (later chapters win), deduped
// relationships and narrative flags. Snapshots themselves are carried so
// the next volume can inspect per-chapter provenance.
func Aggregate(snapshots []Snapshot) *Pack {
	out := New()
	seenRel := make(map[string]bool)
	seenFlag := make(map[string]bool)

	for _, s := range snapshots {
		for k, v := range s.Roster {
			out.Roster[k] = v
		}
		for k, v := range s.Glossary {
			out.Glossary[k] = v
		}
		for _, rel := range s.Relationships {
			key := rel.From + "\x00" + rel.To + "\x00" + rel.Type
			if !seenRel[key] {
				seenRel[key] = true
				out.Relationships = append(out.Relationships, rel)
			}
		}
		for _, flag := range s.NarrativeFlags {
			if !seenFlag[flag] {
				seenFlag[flag] = true
				out.NarrativeFlags = append(out.NarrativeFlags, flag)
			}
		}
	}
	out.ChapterSnapshots = append(out.ChapterSnapshots, snapshots...)
	return out
}

// Format renders the pack's relationships and narrative flags for the
// system instruction.
func (p *Pack) Format() string {
	if p == nil || (len(p.Relationships) == 0 && len(p.NarrativeFlags) == 0) {
		return ""
	}
	var sb []byte
	sb = append(sb, "=== CONTINUITY ===\n"...)
	for _, rel := range p.Relationships {
		sb = append(sb, fmt.Sprintf("%s → %s: %s", rel.From, rel.To, rel.Type)...)
		if rel.Note != "" {
			sb = append(sb, " ("+rel.Note+")"...)
		}
		sb = append(sb, '\n')
	}
	if len(p.NarrativeFlags) > 0 {
		sb = append(sb, "Narrative flags:\n"...)
		for _, flag := range p.NarrativeFlags {
			sb = append(sb, "- "+flag+"\n"...)
		}
	}
	return string(sb)
}
