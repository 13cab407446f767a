package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMergesFilesAndSkipsBroken(t *testing.T) {
	dir := t.TempDir()
	train := writeFile(t, dir, "train.json", `[
		{"text": "Bagaimana cara membuat KTP?", "answer": "Datang ke kelurahan dengan KK."},
		{"question": "Apa itu KK?", "response": "Kartu Keluarga."}
	]`)
	broken := writeFile(t, dir, "broken.json", `{not json`)
	missing := filepath.Join(dir, "does-not-exist.json")

	store := Load([]string{train, broken, missing}, zap.NewNop())
	if store.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", store.Len())
	}
	// text|question and answer|response alternatives both normalize.
	entries := store.Entries()
	if entries[1].Question != "Apa itu KK?" || entries[1].Answer != "Kartu Keluarga." {
		t.Errorf("alternative field names not adapted: %+v", entries[1])
	}
}

func TestLoadDeduplicates(t *testing.T) {
	dir := t.TempDir()
	// Same content twice, differing only in case, punctuation and spacing.
	a := writeFile(t, dir, "a.json", `[
		{"text": "Bagaimana cara membuat KTP?", "answer": "Datang ke kelurahan dengan KK."}
	]`)
	b := writeFile(t, dir, "b.json", `[
		{"text": "bagaimana  cara membuat ktp", "answer": "datang ke kelurahan dengan kk"}
	]`)

	store := Load([]string{a, b}, zap.NewNop())
	if store.Len() != 1 {
		t.Errorf("expected duplicate to be dropped, got %d entries", store.Len())
	}
}

func TestLoadDropsEntriesWithoutQuestion(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "train.json", `[
		{"answer": "Jawaban tanpa pertanyaan."},
		{"text": "   ", "answer": "Pertanyaan kosong."},
		{"text": "Apa itu RT?", "answer": "Rukun Tetangga."}
	]`)

	store := Load([]string{path}, zap.NewNop())
	if store.Len() != 1 {
		t.Errorf("expected only the valid entry, got %d", store.Len())
	}
}

func TestLoadTransformsKosakata(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kosakata_jawa.json", `[
		{"indonesia": "makan", "ngoko": "mangan", "krama": "dhahar"}
	]`)

	store := Load([]string{path}, zap.NewNop())
	if store.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", store.Len())
	}
	entry := store.Entries()[0]
	if entry.Question != "Apa bahasa Jawa dari 'makan'?" {
		t.Errorf("unexpected question: %q", entry.Question)
	}
	want := "Bahasa Jawa dari 'makan':\n- Ngoko: mangan\n- Krama: dhahar"
	if entry.Answer != want {
		t.Errorf("unexpected answer:\ngot  %q\nwant %q", entry.Answer, want)
	}
	if entry.Category != "kosakata_jawa" {
		t.Errorf("unexpected category %q", entry.Category)
	}
	if len(entry.Tags) != 3 || entry.Tags[2] != "makan" {
		t.Errorf("unexpected tags %v", entry.Tags)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Bagaimana  Cara, Membuat KTP?!", want: "bagaimana cara membuat ktp"},
		{in: "  sudah bersih  ", want: "sudah bersih"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := normalizeText(tt.in); got != tt.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
