package generator

import (
	"github.com/datagrep/datagrep/pkg/api"
	"github.com/datagrep/datagrep/pkg/schema"
)

// Request describes a pipeline generation request.
type Request struct {
	// NaturalLanguage is the user's request in plain English.
	NaturalLanguage string

	// SourceType selects the data source kind and, with it, the
	// target language of the generated code.
	SourceType api.SourceType

	// Schema is the inferred schema of the source, included verbatim
	// in the prompt.
	Schema *schema.Schema

	// Source carries the connection or file details the generated
	// code must use.
	Source api.SourceConfig

	// Transformations optionally narrows the request to specific
	// transformation steps.
	Transformations []string
}

// Result is the generated pipeline before it is stored.
type Result struct {
	Code         string         `json:"code"`
	Language     api.Language   `json:"language"`
	Description  string         `json:"description"`
	Steps        []string       `json:"steps"`
	Dependencies []string       `json:"dependencies"`
	SourceType   api.SourceType `json:"source_type"`
	ModelUsed    string         `json:"model_used"`
}

// Chat Completions wire format. Only the fields this client uses are
// modeled.

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}
