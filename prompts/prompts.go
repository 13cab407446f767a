package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"kelurahan-assistant/knowledge"
)

// Embedded prompt files

//go:embed system_instruction.txt
var systemInstruction string

//go:embed decline.txt
var decline string

// SystemInstruction returns the assistant persona, with the grounding block
// appended when reference entries were retrieved.
func SystemInstruction(grounding string) string {
	if grounding == "" {
		return systemInstruction
	}
	return fmt.Sprintf("%s\n📚 DATA REFERENSI:\n%s", systemInstruction, grounding)
}

// Grounding renders retrieved entries as the Q/A reference block embedded in
// the system instruction.
func Grounding(entries []knowledge.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	blocks := make([]string, len(entries))
	for i, e := range entries {
		blocks[i] = fmt.Sprintf("Q: %s\nA: %s", e.Question, e.Answer)
	}
	return strings.Join(blocks, "\n---\n")
}

// GenericDecline is the fixed answer when every response layer came up empty.
func GenericDecline() string {
	return strings.TrimSpace(decline)
}
