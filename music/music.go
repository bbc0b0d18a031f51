// Package music picks a background bed for the final video from a local
// library. Music is optional everywhere: a missing library, tags file or
// match is never an error.
package music

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"timeline-pipeline/config"
)

// Library holds the configured tracks and their topic keywords.
type Library struct {
	cfg    *config.Config
	tracks map[string][]string // filename -> keywords
}

func New(cfg *config.Config) *Library {
	lib := &Library{cfg: cfg, tracks: map[string][]string{}}
	if !cfg.Music.Enabled {
		return lib
	}
	data, err := os.ReadFile(cfg.Music.TagsFile)
	if err != nil {
		log.Printf("[music] No tags file at %s — music disabled for this run", cfg.Music.TagsFile)
		return lib
	}
	if err := yaml.Unmarshal(data, &lib.tracks); err != nil {
		log.Printf("[music] Could not parse %s: %v — music disabled for this run", cfg.Music.TagsFile, err)
		lib.tracks = map[string][]string{}
	}
	return lib
}

// Pick returns the library track best matching the topic, preferring tracks
// whose keywords appear in the topic. Falls back to any available track;
// returns ok=false when nothing usable exists.
func (l *Library) Pick(topic string) (string, bool) {
	if !l.cfg.Music.Enabled || len(l.tracks) == 0 {
		return "", false
	}

	topicLower := strings.ToLower(topic)

	type scored struct {
		file  string
		score int
	}
	var candidates []scored
	for file, keywords := range l.tracks {
		full := filepath.Join(l.cfg.Music.LibraryDir, file)
		if _, err := os.Stat(full); err != nil {
			continue
		}
		score := 0
		for _, kw := range keywords {
			if strings.Contains(topicLower, strings.ToLower(kw)) {
				score++
			}
		}
		candidates = append(candidates, scored{file: full, score: score})
	}
	if len(candidates) == 0 {
		return "", false
	}

	// Highest score wins; ties break on filename so a rerun picks the same
	// track.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].file < candidates[j].file
	})
	log.Printf("[music] Picked bed: %s", candidates[0].file)
	return candidates[0].file, true
}
