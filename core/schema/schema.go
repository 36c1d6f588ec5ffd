// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// Validator is a utility to validate JSON documents against a set of known schemas
type Validator struct {
	schemaValidators map[string]*gojsonschema.Schema
}

// NewValidatorFromFS creates a new Validator using schemas from schemaFS. Json files
// in dir are used as toplevel schemas, json files in dir/refs are used
// as references. A missing refs directory is fine.
func NewValidatorFromFS(schemaFS fs.FS, dir string) (*Validator, error) {
	readDir := func(dir string) ([]string, error) {
		var strs []string
		files, err := fs.ReadDir(schemaFS, dir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			str, err := fs.ReadFile(schemaFS, path.Join(dir, f.Name()))
			if err != nil {
				return nil, fmt.Errorf("cannot read file '%s': %w", f.Name(), err)
			}
			strs = append(strs, string(str))
		}
		return strs, nil
	}

	schemas, err := readDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read dir %s: %w", dir, err)
	}
	refs, err := readDir(path.Join(dir, "refs"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cannot read refs: %w", err)
	}
	return NewValidator(schemas, refs)
}

// NewValidator creates a new Validator using schemas for the top level JSON schemas and refs
// for refs that may be referenced in the top level schemas. Top level schemas cannot reference each
// other. If a reference is mentioned, it can only be in the list of refs
func NewValidator(schemas []string, refs []string) (*Validator, error) {
	type schema struct {
		ID string `json:"$id"`
	}
	validator := Validator{schemaValidators: make(map[string]*gojsonschema.Schema)}
	for _, str := range schemas {
		s := schema{}
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			return nil, fmt.Errorf("parse error '%v' in schema: '%s'", err, str)
		}
		if s.ID == "" {
			return nil, fmt.Errorf("schema does not contain $id: '%s'", str)
		}
		sl := gojsonschema.NewSchemaLoader()
		for _, ref := range refs {
			if err := sl.AddSchemas(gojsonschema.NewStringLoader(ref)); err != nil {
				return nil, fmt.Errorf("cannot add ref %s: %w", ref, err)
			}
		}
		compiled, err := sl.Compile(gojsonschema.NewStringLoader(str))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s: %w", s.ID, err)
		}
		validator.schemaValidators[s.ID] = compiled
	}
	return &validator, nil
}

// HasSchema returns true if schemaID is known
func (v *Validator) HasSchema(schemaID string) bool {
	_, ok := v.schemaValidators[schemaID]
	return ok
}

// ValidateStruct validates the given value against schemaID.
func (v *Validator) ValidateStruct(value interface{}, schemaID string) error {
	return v.validate(gojsonschema.NewGoLoader(value), schemaID)
}

// ValidateBytes validates the given json document against schemaID.
func (v *Validator) ValidateBytes(document []byte, schemaID string) error {
	return v.validate(gojsonschema.NewBytesLoader(document), schemaID)
}

// ValidateString validates the given json against schemaID.
func (v *Validator) ValidateString(document, schemaID string) error {
	return v.validate(gojsonschema.NewStringLoader(document), schemaID)
}

// Error lists the violations of a document against a schema
type Error struct {
	SchemaID   string
	Violations []string
}

func (e *Error) Error() string {
	return "the document is not valid: " + strings.Join(e.Violations, "; ")
}

func (v *Validator) validate(loader gojsonschema.JSONLoader, schemaID string) error {
	schema, ok := v.schemaValidators[schemaID]
	if !ok {
		return fmt.Errorf("there is no schema %s", schemaID)
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return fmt.Errorf("cannot validate with schema %s: %w", schemaID, err)
	}
	if result.Valid() {
		return nil
	}
	verr := &Error{SchemaID: schemaID}
	for _, e := range result.Errors() {
		verr.Violations = append(verr.Violations, e.String())
	}
	return verr
}
