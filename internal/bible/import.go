package bible

import (
	"fmt"
	"log/slog"

	"honyaku/internal/manifest"
)

// ImportFromManifest enriches a series bible with the character data the
// librarian extracted for a volume, and links the volume's short-hash into
// the registry index. Existing bible entries always win over manifest data.
func ImportFromManifest(b *SeriesBible, idx *Index, m *manifest.Manifest, lang string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lm := m.Lang(lang)
	added := 0
	if lm != nil {
		for jp, en := range lm.CharacterNames {
			if jp == "" || en == "" {
				continue
			}
			if _, exists := b.Characters[jp]; exists {
				continue
			}
			if err := b.AddEntry("characters", jp, Entry{CanonicalEN: en}); err != nil {
				return added, err
			}
			added++
		}
		for _, profile := range lm.CharacterProfiles {
			if profile.NameJP == "" || profile.NameEN == "" {
				continue
			}
			entry := Entry{
				CanonicalEN: profile.NameEN,
				Notes:       profile.Role,
			}
			if err := b.AddEntry("characters", profile.NameJP, entry); err != nil {
				return added, err
			}
		}
	}

	if shortID := ShortID(m.VolumeID); shortID != "" {
		if err := idx.LinkVolume(b.SeriesID, shortID); err != nil {
			return added, fmt.Errorf("failed to link volume: %w", err)
		}
	}

	b.RegisterVolume(m.VolumeID, m.Metadata.Title, volumeIndex(b, m.VolumeID))

	logger.Info("imported manifest into bible",
		"series", b.SeriesID, "volume", m.VolumeID, "new_characters", added)
	return added, nil
}

// volumeIndex picks the next free index for a newly registered volume.
func volumeIndex(b *SeriesBible, volumeID string) int {
	for _, v := range b.VolumesRegistered {
		if v.VolumeID == volumeID {
			return v.Index
		}
	}
	max := 0
	for _, v := range b.VolumesRegistered {
		if v.Index > max {
			max = v.Index
		}
	}
	return max + 1
}
