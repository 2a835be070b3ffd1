package store

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tamperscan/internal/document"
	"tamperscan/internal/timeline"
)

//go:embed corpus_schema.json
var corpusSchemaJSON []byte

var (
	corpusSchemaOnce sync.Once
	corpusSchema     *jsonschema.Schema
	corpusSchemaErr  error
)

func compiledCorpusSchema() (*jsonschema.Schema, error) {
	corpusSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		const name = "corpus-v1.schema.json"
		if err := compiler.AddResource(name, bytes.NewReader(corpusSchemaJSON)); err != nil {
			corpusSchemaErr = fmt.Errorf("add corpus schema: %w", err)
			return
		}
		corpusSchema, corpusSchemaErr = compiler.Compile(name)
	})
	return corpusSchema, corpusSchemaErr
}

// CorpusFile is the decoded form of a JSON corpus file.
type CorpusFile struct {
	Snapshots []*document.Snapshot `json:"snapshots"`
	Events    []timeline.Event     `json:"events"`
}

// ReadCorpusFile parses a JSON corpus file, validating it against the
// embedded schema first so malformed input fails with a field-level
// message instead of a half-loaded corpus.
func ReadCorpusFile(path string) (*CorpusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	schema, err := compiledCorpusSchema()
	if err != nil {
		return nil, err
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}

	var file CorpusFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", path, err)
	}
	for _, snap := range file.Snapshots {
		for _, fieldPath := range snap.FieldPaths() {
			if err := document.ValidateValue(fieldPath, snap.Fields[fieldPath]); err != nil {
				return nil, fmt.Errorf("corpus %s: snapshot %s: %w", path, snap.ArtifactID, err)
			}
		}
	}
	return &file, nil
}

// Import loads a corpus file and persists its contents.
func (s *Store) Import(path string) (*CorpusFile, error) {
	file, err := ReadCorpusFile(path)
	if err != nil {
		return nil, err
	}
	for _, snap := range file.Snapshots {
		if err := s.PutSnapshot(snap); err != nil {
			return nil, err
		}
	}
	for _, ev := range file.Events {
		if err := s.AppendEvent(ev); err != nil {
			return nil, err
		}
	}
	return file, nil
}
