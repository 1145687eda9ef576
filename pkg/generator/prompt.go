package generator

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/datagrep/datagrep/pkg/api"
)

// buildPrompt assembles the user prompt for a generation request. The
// instructions pin down the sandbox environment the code will run in:
// CSV mount paths under /data, PostgreSQL credentials via POSTGRES_*
// environment variables, and print-based output capture.
func buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate a data pipeline based on the following requirements:\n\n")
	fmt.Fprintf(&b, "USER REQUEST:\n%s\n\n", req.NaturalLanguage)
	fmt.Fprintf(&b, "DATA SOURCE TYPE: %s\n\n", req.SourceType)

	if req.Schema != nil {
		schemaJSON, err := json.MarshalIndent(req.Schema, "", "  ")
		if err == nil {
			fmt.Fprintf(&b, "SCHEMA:\n%s\n\n", schemaJSON)
		}
	}

	if len(req.Transformations) > 0 {
		b.WriteString("SPECIFIC TRANSFORMATIONS REQUESTED:\n")
		for _, tr := range req.Transformations {
			fmt.Fprintf(&b, "- %s\n", tr)
		}
		b.WriteString("\n")
	}

	switch req.SourceType {
	case api.SourceTypePostgres:
		b.WriteString(postgresInstructions)
	default:
		b.WriteString(csvInstructions(req.Source))
	}

	return b.String()
}

func csvInstructions(src api.SourceConfig) string {
	filename := "data.csv"
	if src.FilePath != "" {
		filename = filepath.Base(src.FilePath)
	}
	mountPath := "/data/" + filename

	var b strings.Builder
	fmt.Fprintf(&b, `Generate a Python pipeline that:
1. Reads the CSV file from %[1]s (the file is mounted at this exact path)
2. Performs the requested transformations (filters, joins, aggregations, etc.)
3. Outputs the result using print() statements - the output will be captured automatically

IMPORTANT FOR EXECUTION:
- The CSV file is mounted at: %[1]s
- Use this EXACT path in your code: file_path = '%[1]s'
- Use print() to output results (e.g., print(df.head()), print(df.describe()))
- For structured data, print as JSON: print(json.dumps(result.to_dict(orient='records')))
- The code will be executed in a sandbox with pandas, psycopg2, and numpy available
- PostgreSQL connection is available via environment variables: POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER, POSTGRES_PASSWORD

Include:
- Error handling with try/except blocks
- Data validation
- Clear comments
- Use print() to show results (not file writes)

IMPORTANT: Return ONLY the Python code directly. Do NOT wrap it in JSON or markdown code blocks.
Just output the raw Python code that can be executed directly.
`, mountPath)
	return b.String()
}

const postgresInstructions = `Generate a SQL pipeline that:
1. Queries the PostgreSQL database
2. Performs the requested transformations (filters, joins, aggregations, etc.)
3. Can create views, materialized views, or output tables

Include:
- Proper SQL syntax
- Index suggestions if applicable
- Clear comments

IMPORTANT: Return ONLY the SQL code directly. Do NOT wrap it in JSON or markdown code blocks.
Just output the raw SQL code that can be executed directly.
`
