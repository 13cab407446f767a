package knowledge

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var punctRe = regexp.MustCompile(`[^\pL\pN\s]+`)
var spaceRe = regexp.MustCompile(`\s+`)

// Store holds the knowledge corpus, immutable after Load.
type Store struct {
	entries []Entry
}

// Load reads each path as a JSON array of records, adapts them into canonical
// entries and deduplicates. A missing or unparseable file is skipped with a
// warning; loading never aborts the process. Entries without question text are
// dropped since retrieval cannot score them.
func Load(paths []string, logger *zap.Logger) *Store {
	var entries []Entry
	seen := make(map[string]bool)

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Could not read training data file, skipping",
				zap.String("file", path),
				zap.Error(err))
			continue
		}

		var records []rawRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			logger.Warn("Training data file is not a JSON array, skipping",
				zap.String("file", path),
				zap.Error(err))
			continue
		}

		loaded := 0
		for _, r := range records {
			entry := normalizeRecord(r)
			if strings.TrimSpace(entry.Question) == "" {
				continue
			}
			hash := dedupHash(entry)
			if seen[hash] {
				continue
			}
			seen[hash] = true
			entries = append(entries, entry)
			loaded++
		}

		logger.Info("Loaded training data file",
			zap.String("file", path),
			zap.Int("records", len(records)),
			zap.Int("unique", loaded))
	}

	return &Store{entries: entries}
}

// Entries returns the corpus. Callers must treat the slice as read-only.
func (s *Store) Entries() []Entry {
	return s.entries
}

func (s *Store) Len() int {
	return len(s.entries)
}

// dedupHash fingerprints an entry by its normalized question+answer text so
// the same record appearing in multiple datasets is kept once.
func dedupHash(e Entry) string {
	sum := sha1.Sum([]byte(normalizeText(e.Question + e.Answer)))
	return hex.EncodeToString(sum[:])
}

// normalizeText lowercases, strips punctuation and collapses whitespace.
func normalizeText(text string) string {
	text = strings.ToLower(text)
	text = punctRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
