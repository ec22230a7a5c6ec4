package bible

import (
	"fmt"
	"sort"
	"strings"
)

// PromptBlock renders the bible as the structured prompt section injected
// into the system instruction: world setting first, then every category
// with its canonical names.
func (b *SeriesBible) PromptBlock() string {
	var sb strings.Builder

	sb.WriteString("=== WORLD SETTING ===\n")
	if b.WorldSetting.Label != "" {
		fmt.Fprintf(&sb, "Setting: %s", b.WorldSetting.Label)
		if b.WorldSetting.Type != "" {
			fmt.Fprintf(&sb, " (%s)", b.WorldSetting.Type)
		}
		sb.WriteString("\n")
	} else if b.WorldSetting.Type != "" {
		fmt.Fprintf(&sb, "Setting type: %s\n", b.WorldSetting.Type)
	}
	if b.WorldSetting.Honorifics.Mode != "" {
		fmt.Fprintf(&sb, "Honorifics: %s", b.WorldSetting.Honorifics.Mode)
		if b.WorldSetting.Honorifics.Policy != "" {
			fmt.Fprintf(&sb, " — %s", b.WorldSetting.Honorifics.Policy)
		}
		sb.WriteString("\n")
	}
	if b.WorldSetting.NameOrder.Default != "" {
		fmt.Fprintf(&sb, "Name order: %s", b.WorldSetting.NameOrder.Default)
		if b.WorldSetting.NameOrder.Policy != "" {
			fmt.Fprintf(&sb, " — %s", b.WorldSetting.NameOrder.Policy)
		}
		sb.WriteString("\n")
	}
	for _, ex := range b.WorldSetting.Exceptions {
		fmt.Fprintf(&sb, "Exception: %s — %s\n", ex.Character, ex.Rule)
	}
	if len(b.TranslationRules) > 0 {
		sb.WriteString("Series rules:\n")
		for _, rule := range b.TranslationRules {
			fmt.Fprintf(&sb, "- %s\n", rule)
		}
	}

	for _, cat := range b.categoryMaps() {
		if len(cat.Entries) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n=== %s ===\n", cat.Label)

		keys := make([]string, 0, len(cat.Entries))
		for k := range cat.Entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, jp := range keys {
			entry := cat.Entries[jp]
			fmt.Fprintf(&sb, "%s → %s", jp, entry.CanonicalEN)
			if entry.ShortName != "" && entry.ShortName != entry.CanonicalEN {
				fmt.Fprintf(&sb, " (short: %s)", entry.ShortName)
			}
			if len(entry.AliasesJP) > 0 {
				fmt.Fprintf(&sb, " [aliases: %s]", strings.Join(entry.AliasesJP, ", "))
			}
			if entry.Notes != "" {
				fmt.Fprintf(&sb, " — %s", entry.Notes)
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// WorldSettingDirective renders the one-line compact form of the world
// setting for space-constrained injection.
func (b *SeriesBible) WorldSettingDirective() string {
	parts := []string{}
	if b.WorldSetting.Label != "" {
		parts = append(parts, b.WorldSetting.Label)
	} else if b.WorldSetting.Type != "" {
		parts = append(parts, b.WorldSetting.Type)
	}
	if b.WorldSetting.Honorifics.Mode != "" {
		parts = append(parts, "honorifics: "+b.WorldSetting.Honorifics.Mode)
	}
	if b.WorldSetting.NameOrder.Default != "" {
		parts = append(parts, "name order: "+b.WorldSetting.NameOrder.Default)
	}
	if len(parts) == 0 {
		return ""
	}
	return "WORLD: " + strings.Join(parts, "; ")
}
