package knowledge

import (
	"regexp"
	"sort"
	"strings"
)

// Indonesian definition questions ("apa itu X", "apakah kepanjangan X") get a
// targeted bonus so glossary entries beat entries that merely mention the term.
var definitionRe = regexp.MustCompile(`(?i)^(?:apa|apakah)\s+(?:itu|kepanjangan|arti)\s+(.+?)(?:\?|$)`)

const (
	weightQuestion  = 2
	weightTags      = 3
	weightAnswer    = 1
	exactMatchBonus = 10
	definitionBonus = 15
	// Higher when the entry is an explicit terminology record.
	definitionIstilahBonus = 20

	strictWeightQuestion = 3
	strictWeightTags     = 4
	strictWeightAnswer   = 1
)

// Generic question/function words carry no signal in the strict fallback pass;
// the set merges common Indonesian stopwords with interrogatives plus the
// Javanese equivalents appearing in the vocabulary dataset.
var genericWords = map[string]bool{
	"dan": true, "atau": true, "yang": true, "dengan": true, "untuk": true,
	"pada": true, "di": true, "ke": true, "dari": true, "ini": true,
	"itu": true, "adalah": true, "sebagai": true, "apa": true, "apakah": true,
	"bagaimana": true, "dimana": true, "kapan": true, "siapa": true,
	"kenapa": true, "mengapa": true, "cara": true, "bisa": true,
	"opo": true, "kuwi": true, "niki": true, "ing": true, "sak": true, "karo": true,
}

type scoredEntry struct {
	entry Entry
	score int
}

// FindRelevant scores every corpus entry against the query using weighted
// substring overlap and returns at most maxResults entries, best first.
// Ties keep original corpus order (stable sort), so results are deterministic
// given identical input. An empty query or corpus yields an empty result.
func FindRelevant(query string, entries []Entry, maxResults int) []Entry {
	if strings.TrimSpace(query) == "" || len(entries) == 0 || maxResults <= 0 {
		return nil
	}

	lowerQuery := strings.ToLower(query)
	tokens := strings.Fields(lowerQuery)
	term := definitionTerm(query)

	scored := make([]scoredEntry, 0, len(entries))
	for _, entry := range entries {
		question := strings.ToLower(entry.Question)
		answer := strings.ToLower(entry.Answer)
		tags := strings.ToLower(strings.Join(entry.Tags, " "))

		score := 0
		if term != "" && strings.Contains(question, term) {
			if isIstilahCategory(entry.Category) {
				score += definitionIstilahBonus
			} else {
				score += definitionBonus
			}
		}

		for _, word := range tokens {
			if len(word) < 3 {
				continue
			}
			if strings.Contains(question, word) {
				score += weightQuestion
			}
			if strings.Contains(tags, word) {
				score += weightTags
			}
			if strings.Contains(answer, word) {
				score += weightAnswer
			}
		}
		if strings.Contains(question, lowerQuery) {
			score += exactMatchBonus
		}

		if score > 0 {
			scored = append(scored, scoredEntry{entry: entry, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	results := make([]Entry, len(scored))
	for i, s := range scored {
		results[i] = s.entry
	}
	return results
}

// StrictFallback is the last local matching pass before the generic decline.
// Generic question words score nothing here; only specific content words
// count, so an answer is returned verbatim only when the query shares real
// subject matter with an entry. Ties keep corpus order.
func StrictFallback(query string, entries []Entry) (Entry, bool) {
	if strings.TrimSpace(query) == "" || len(entries) == 0 {
		return Entry{}, false
	}

	lowerQuery := strings.ToLower(query)
	tokens := strings.Fields(lowerQuery)
	term := definitionTerm(query)

	best := Entry{}
	bestScore := 0
	for _, entry := range entries {
		question := strings.ToLower(entry.Question)
		answer := strings.ToLower(entry.Answer)
		tags := strings.ToLower(strings.Join(entry.Tags, " "))

		score := 0
		if term != "" && strings.Contains(question, term) {
			if isIstilahCategory(entry.Category) {
				score += definitionIstilahBonus
			} else {
				score += definitionBonus
			}
		}

		for _, word := range tokens {
			if len(word) < 3 || genericWords[word] {
				continue
			}
			if strings.Contains(question, word) {
				score += strictWeightQuestion
			}
			if strings.Contains(tags, word) {
				score += strictWeightTags
			}
			if strings.Contains(answer, word) {
				score += strictWeightAnswer
			}
		}
		if strings.Contains(question, lowerQuery) {
			score += exactMatchBonus
		}

		if score > bestScore {
			best = entry
			bestScore = score
		}
	}

	return best, bestScore > 0
}

// definitionTerm extracts the term of a definition question, lowercased and
// trimmed, or returns "" when the query is not one.
func definitionTerm(query string) string {
	m := definitionRe.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(m[1]))
}

func isIstilahCategory(category string) bool {
	return strings.Contains(strings.ToLower(category), "istilah")
}
