// Package schema validates docsuite configuration files and CTRF test
// reports against the embedded JSON schemas.
package schema

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "github.com/AndreyAkinshin/docsuite/schema"
)

const (
	configSchemaName = "config.schema.json"
	reportSchemaName = "ctrf-report.schema.json"
)

var (
	configSchema *jsonschema.Schema
	reportSchema *jsonschema.Schema
	compileOnce  sync.Once
	compileErr   error
)

// compileSchemas compiles all embedded schemas once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		for _, name := range []string{configSchemaName, reportSchemaName} {
			data, err := schemafs.FS.ReadFile(name)
			if err != nil {
				compileErr = fmt.Errorf("read %s: %w", name, err)
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				compileErr = fmt.Errorf("unmarshal %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(name, doc); err != nil {
				compileErr = fmt.Errorf("add %s resource: %w", name, err)
				return
			}
		}

		var err error
		configSchema, err = compiler.Compile(configSchemaName)
		if err != nil {
			compileErr = fmt.Errorf("compile config schema: %w", err)
			return
		}

		reportSchema, err = compiler.Compile(reportSchemaName)
		if err != nil {
			compileErr = fmt.Errorf("compile report schema: %w", err)
			return
		}
	})

	return compileErr
}

// ValidateConfig validates JSON data against the config schema.
func ValidateConfig(data []byte) error {
	return validate(data, func() *jsonschema.Schema { return configSchema }, "config")
}

// ValidateReport validates JSON data against the CTRF report schema.
func ValidateReport(data []byte) error {
	return validate(data, func() *jsonschema.Schema { return reportSchema }, "report")
}

func validate(data []byte, sch func() *jsonschema.Schema, what string) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := sch().Validate(v); err != nil {
		return fmt.Errorf("%s validation failed: %w", what, err)
	}

	return nil
}
