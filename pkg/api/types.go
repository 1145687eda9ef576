package api

import "time"

// SourceType identifies the kind of data source a pipeline reads from.
type SourceType string

const (
	SourceTypeCSV      SourceType = "csv"
	SourceTypePostgres SourceType = "postgres"
	SourceTypeMulti    SourceType = "multi"
)

// Language identifies the language of generated pipeline code.
type Language string

const (
	LanguagePython Language = "python"
	LanguageSQL    Language = "sql"
)

// SourceConfig describes how to reach a data source. For CSV sources
// FilePath is set; for Postgres sources the connection fields and
// TableName are set. Zero connection fields fall back to service-wide
// defaults when the pipeline is executed.
type SourceConfig struct {
	FilePath  string `json:"file_path,omitempty"`
	TableName string `json:"table_name,omitempty"`
	Host      string `json:"host,omitempty"`
	Port      int    `json:"port,omitempty"`
	Database  string `json:"database,omitempty"`
	User      string `json:"user,omitempty"`
	Password  string `json:"password,omitempty"`
}

// Pipeline is a generated data-transformation program together with the
// metadata needed to present and execute it.
type Pipeline struct {
	ID           string       `json:"id"`
	Code         string       `json:"code"`
	Language     Language     `json:"language"`
	Description  string       `json:"description,omitempty"`
	Steps        []string     `json:"steps,omitempty"`
	Dependencies []string     `json:"dependencies,omitempty"`
	SourceType   SourceType   `json:"source_type"`
	Source       SourceConfig `json:"source"`
	ModelUsed    string       `json:"model_used,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
