package knowledge

import (
	"fmt"
	"strings"
)

// Entry is the canonical question/answer record every component operates on.
// The loader adapts the heterogeneous source JSON shapes into this one form so
// the retriever and orchestrator never see raw records.
type Entry struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags,omitempty"`
	Category string   `json:"kategori_utama,omitempty"`
}

// rawRecord covers every field observed across the training datasets:
// the standard Q/A shape (text|question, answer|response) and the Javanese
// vocabulary glossary shape (indonesia + ngoko/madya/krama registers).
type rawRecord struct {
	Text      string   `json:"text"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Response  string   `json:"response"`
	Tags      []string `json:"tags"`
	Kategori  string   `json:"kategori_utama"`
	Indonesia string   `json:"indonesia"`
	Ngoko     string   `json:"ngoko"`
	Madya     string   `json:"madya"`
	Krama     string   `json:"krama"`
}

// normalizeRecord adapts a raw record into an Entry. Vocabulary records are
// rewritten into question/answer form; standard records pick the first
// non-empty alternative of each field pair.
func normalizeRecord(r rawRecord) Entry {
	if r.Indonesia != "" && (r.Ngoko != "" || r.Madya != "" || r.Krama != "") {
		return transformKosakata(r)
	}

	question := r.Text
	if question == "" {
		question = r.Question
	}
	answer := r.Answer
	if answer == "" {
		answer = r.Response
	}
	return Entry{
		Question: question,
		Answer:   answer,
		Tags:     r.Tags,
		Category: r.Kategori,
	}
}

func transformKosakata(r rawRecord) Entry {
	parts := make([]string, 0, 3)
	if r.Ngoko != "" {
		parts = append(parts, fmt.Sprintf("Ngoko: %s", r.Ngoko))
	}
	if r.Madya != "" {
		parts = append(parts, fmt.Sprintf("Madya: %s", r.Madya))
	}
	if r.Krama != "" {
		parts = append(parts, fmt.Sprintf("Krama: %s", r.Krama))
	}

	tags := r.Tags
	if len(tags) == 0 {
		tags = []string{"kosakata", "bahasa jawa", r.Indonesia}
	}
	category := r.Kategori
	if category == "" {
		category = "kosakata_jawa"
	}

	return Entry{
		Question: fmt.Sprintf("Apa bahasa Jawa dari '%s'?", r.Indonesia),
		Answer:   fmt.Sprintf("Bahasa Jawa dari '%s':\n- %s", r.Indonesia, strings.Join(parts, "\n- ")),
		Tags:     tags,
		Category: category,
	}
}
