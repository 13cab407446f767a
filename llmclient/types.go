package llmclient

// Wire types mirror the generateContent schema. The same shapes are used on
// the /chat surface so cached and fallback answers stay byte-compatible with
// real completions.

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Candidate struct {
	Content Content `json:"content"`
}

// GenerateOutput is the candidates envelope returned by the provider and
// echoed verbatim to the chat client.
type GenerateOutput struct {
	Candidates []Candidate `json:"candidates"`
}

// GenerateResult pairs the provider payload with the model that produced it.
type GenerateResult struct {
	Model  string
	Output GenerateOutput
}

// Text returns the first candidate's text, or "".
func (r *GenerateResult) Text() string {
	if r == nil || len(r.Output.Candidates) == 0 {
		return ""
	}
	parts := r.Output.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return ""
	}
	return parts[0].Text
}

// UserContent builds a single-part user turn.
func UserContent(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

// ModelContent builds a single-part model turn.
func ModelContent(text string) Content {
	return Content{Role: "model", Parts: []Part{{Text: text}}}
}

// OutputFromText wraps plain text in the candidates envelope, used by the
// local fallback stages.
func OutputFromText(text string) GenerateOutput {
	return GenerateOutput{
		Candidates: []Candidate{{Content: Content{Parts: []Part{{Text: text}}}}},
	}
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type providerError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

type embedRequest struct {
	Model   string  `json:"model"`
	Content Content `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}
