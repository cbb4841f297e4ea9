package forecast

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidSnapshot is returned when a snapshot document does not have the
// normalized shape.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

//go:embed snapshot.schema.json
var snapshotSchemaJSON string

var (
	schemaOnce     sync.Once
	snapshotSchema *jsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource("snapshot.schema.json", strings.NewReader(snapshotSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		snapshotSchema, schemaErr = compiler.Compile("snapshot.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return snapshotSchema, schemaErr
}

// ValidateSnapshotJSON checks raw JSON against the snapshot schema.
func ValidateSnapshotJSON(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return nil
}

// DecodeSnapshot validates raw JSON and decodes it into a Snapshot.
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	if err := ValidateSnapshotJSON(raw); err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	snap.FetchedAt = snap.FetchedAt.UTC()
	return snap, nil
}
