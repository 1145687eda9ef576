// Package schema infers tabular schemas from data sources.
//
// Two inference paths are supported: CSV files on disk, sampled and
// type-sniffed locally, and PostgreSQL tables, described via
// information_schema. Both produce the same Schema shape so that
// downstream pipeline generation works against one representation.
package schema
