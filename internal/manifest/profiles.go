package manifest

import "encoding/json"

// CharacterProfile is the enhanced per-character profile shape. Legacy v2
// profiles are upgraded into this shape on load; the rich fields (RTAS
// relationships, keigo switches, contraction rate, how-refers-to-others)
// survive the upgrade intact.
type CharacterProfile struct {
	NameJP    string `json:"name_jp"`
	NameEN    string `json:"name_en,omitempty"`
	Role      string `json:"role,omitempty"`
	VoiceSpec string `json:"voice,omitempty"`

	// Speech fingerprint
	SpeechFingerprint string            `json:"speech_fingerprint,omitempty"`
	ContractionRate   float64           `json:"contraction_rate,omitempty"`
	KeigoSwitch       map[string]string `json:"keigo_switch,omitempty"`
	RefersToOthers    map[string]string `json:"how_refers_to_others,omitempty"`

	// RTAS: typed relationships with score and per-relationship
	// contraction-rate override.
	Relationships []Relationship `json:"relationships,omitempty"`

	// Legacy v2 fields, consumed by upgradeProfile and then cleared.
	LegacyName   string          `json:"name,omitempty"`
	LegacyVoice  string          `json:"voice_notes,omitempty"`
	LegacySpeech json.RawMessage `json:"speech,omitempty"`
}

// Relationship is one RTAS entry.
type Relationship struct {
	Target          string  `json:"target"`
	Type            string  `json:"type"`
	Score           float64 `json:"score,omitempty"`
	ContractionRate float64 `json:"contraction_rate,omitempty"`
}

// SemanticMetadata carries per-volume semantic guidance from the librarian.
type SemanticMetadata struct {
	SceneContexts         []SceneContext  `json:"scene_contexts,omitempty"`
	TranslationGuidelines []string        `json:"translation_guidelines,omitempty"`
	Extra                 json.RawMessage `json:"-"`
}

// SceneContext describes one recurring scene setting.
type SceneContext struct {
	Scene    string `json:"scene"`
	Register string `json:"register,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// legacySpeech is the v2 nested speech block.
type legacySpeech struct {
	Fingerprint     string            `json:"fingerprint,omitempty"`
	ContractionRate float64           `json:"contraction_rate,omitempty"`
	KeigoSwitch     map[string]string `json:"keigo_switch,omitempty"`
	RefersToOthers  map[string]string `json:"how_refers_to_others,omitempty"`
	Relationships   []Relationship    `json:"rtas,omitempty"`
}

// upgradeProfile lifts a legacy v2 profile into the enhanced shape.
// Enhanced-shape fields win when both are present.
func upgradeProfile(p *CharacterProfile) {
	if p.NameJP == "" && p.LegacyName != "" {
		p.NameJP = p.LegacyName
	}
	if p.VoiceSpec == "" && p.LegacyVoice != "" {
		p.VoiceSpec = p.LegacyVoice
	}
	if len(p.LegacySpeech) > 0 {
		var sp legacySpeech
		if err := json.Unmarshal(p.LegacySpeech, &sp); err == nil {
			if p.SpeechFingerprint == "" {
				p.SpeechFingerprint = sp.Fingerprint
			}
			if p.ContractionRate == 0 {
				p.ContractionRate = sp.ContractionRate
			}
			if p.KeigoSwitch == nil {
				p.KeigoSwitch = sp.KeigoSwitch
			}
			if p.RefersToOthers == nil {
				p.RefersToOthers = sp.RefersToOthers
			}
			if p.Relationships == nil {
				p.Relationships = sp.Relationships
			}
		}
	}
	p.LegacyName = ""
	p.LegacyVoice = ""
	p.LegacySpeech = nil
}
