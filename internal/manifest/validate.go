package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// manifestSchema is the structural contract for manifests the translator
// will accept. Unknown fields are allowed; they belong to other phases.
const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "volume_id", "metadata", "chapters"],
  "properties": {
    "schema_version": {"type": "string", "minLength": 1},
    "volume_id": {"type": "string", "minLength": 1},
    "bible_id": {"type": "string"},
    "metadata": {
      "type": "object",
      "required": ["title"],
      "properties": {
        "series": {"type": "string"},
        "title": {"type": "string", "minLength": 1},
        "genre": {"type": "string"}
      }
    },
    "chapters": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "source_file"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "source_file": {"type": "string", "minLength": 1},
          "translation_status": {
            "type": "string",
            "enum": ["pending", "completed", "failed", ""]
          }
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("manifest.json", manifestSchema)

// Validate checks raw manifest bytes against the structural schema.
func Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: not valid JSON: %v", ErrInvalid, err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Preflight runs additional structural checks for schema versions that
// shipped with librarian bugs. v3.6 manifests sometimes carried chapters
// whose source files drifted from their ids.
func Preflight(m *Manifest) error {
	if !strings.HasPrefix(m.SchemaVersion, "3.6") {
		return nil
	}
	seen := make(map[string]string, len(m.Chapters))
	for _, ch := range m.Chapters {
		if prev, dup := seen[ch.ID]; dup {
			return fmt.Errorf("%w: duplicate chapter id %q (source files %s, %s)",
				ErrInvalid, ch.ID, prev, ch.SourceFile)
		}
		seen[ch.ID] = ch.SourceFile

		n := ChapterNumber(ch.ID)
		if n == 0 {
			continue
		}
		want := fmt.Sprintf("%02d", n)
		if !strings.Contains(ch.SourceFile, want) {
			return fmt.Errorf("%w: chapter %q maps to source file %q (expected chapter %s)",
				ErrInvalid, ch.ID, ch.SourceFile, want)
		}
	}
	return nil
}
