package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/datagrep/datagrep/pkg/api"
	"github.com/datagrep/datagrep/pkg/config"
)

// PostgresInspector infers schemas from live PostgreSQL databases.
// Connection parameters missing from a source fall back to the
// configured defaults, mirroring how sandbox executions resolve
// database credentials.
type PostgresInspector struct {
	defaults config.DatabaseConfig
	logger   *slog.Logger
}

// NewPostgresInspector creates an inspector with the given connection
// defaults.
func NewPostgresInspector(defaults config.DatabaseConfig, logger *slog.Logger) *PostgresInspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresInspector{defaults: defaults, logger: logger}
}

// Infer describes the table named in src, or lists the public tables
// when src carries no table name. A fresh connection is opened per
// call and closed before returning.
func (p *PostgresInspector) Infer(ctx context.Context, src api.SourceConfig) (*Schema, error) {
	conn, err := pgx.Connect(ctx, p.dsn(src))
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	defer conn.Close(ctx)

	if src.TableName == "" {
		return p.listTables(ctx, conn)
	}
	return p.describeTable(ctx, conn, src.TableName)
}

func (p *PostgresInspector) dsn(src api.SourceConfig) string {
	host := src.Host
	if host == "" {
		host = p.defaults.Host
	}
	port := src.Port
	if port == 0 {
		port = p.defaults.Port
	}
	database := src.Database
	if database == "" {
		database = p.defaults.Name
	}
	user := src.User
	if user == "" {
		user = p.defaults.User
	}
	password := src.Password
	if password == "" {
		password = p.defaults.Password
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", user, password, host, port, database)
}

func (p *PostgresInspector) describeTable(ctx context.Context, conn *pgx.Conn, table string) (*Schema, error) {
	rows, err := conn.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns of %q: %w", table, err)
	}
	defer rows.Close()

	schema := &Schema{TableName: table}
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scanning column metadata: %w", err)
		}
		schema.Columns = append(schema.Columns, Column{
			Name:     name,
			Type:     dataType,
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading column metadata: %w", err)
	}
	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("table %q not found", table)
	}

	samples, err := p.sampleRows(ctx, conn, table)
	if err != nil {
		return nil, err
	}
	schema.SampleRows = samples

	p.logger.Debug("inferred PostgreSQL schema",
		"table", table,
		"columns", len(schema.Columns),
		"sample_rows", len(samples))

	return schema, nil
}

func (p *PostgresInspector) sampleRows(ctx context.Context, conn *pgx.Conn, table string) ([]map[string]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", pgx.Identifier{table}.Sanitize(), sampleRowLimit)
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sampling rows from %q: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var samples []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading sample row from %q: %w", table, err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		samples = append(samples, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sampling rows from %q: %w", table, err)
	}
	return samples, nil
}

func (p *PostgresInspector) listTables(ctx context.Context, conn *pgx.Conn) (*Schema, error) {
	rows, err := conn.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	schema := &Schema{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		schema.Tables = append(schema.Tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return schema, nil
}
