// Package schema provides the embedded JSON schemas for docsuite
// configuration files and consumed test reports.
package schema

import "embed"

// FS contains the embedded schema files.
//
//go:embed *.schema.json
var FS embed.FS
