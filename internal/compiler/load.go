package compiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"

	"github.com/roach88/timeline/internal/ir"
)

// LoadFile loads exactly one document from a .cue, .yaml or .yml file.
func LoadFile(path string) (*ir.Document, error) {
	docs, err := LoadDocuments(path)
	if err != nil {
		return nil, err
	}
	if len(docs) != 1 {
		return nil, fmt.Errorf("%s: expected one scenario, found %d", path, len(docs))
	}
	return docs[0], nil
}

// LoadDocuments loads every document found at path. A directory is loaded as
// one CUE instance; a .cue file may declare several scenarios under the
// top-level "scenario" struct; a YAML file holds one document.
func LoadDocuments(path string) ([]*ir.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if info.IsDir() {
		return loadCUEDir(path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		ctx := cuecontext.New()
		return documentsFromCUE(ctx.CompileBytes(data, cue.Filename(path)))
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		doc, err := DecodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return []*ir.Document{doc}, nil
	default:
		return nil, fmt.Errorf("load %s: unsupported file extension %q", path, filepath.Ext(path))
	}
}

// DecodeYAML decodes one document. Unknown fields are rejected.
func DecodeYAML(data []byte) (*ir.Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc ir.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(doc.Syncs) == 0 && len(doc.Intervals) == 0 {
		return nil, &CompileError{Field: "syncs", Message: "a scenario needs at least one sync or interval"}
	}
	return &doc, nil
}

func loadCUEDir(dir string) ([]*ir.Document, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load %s: no CUE instances", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, inst.Err)
	}

	ctx := cuecontext.New()
	return documentsFromCUE(ctx.BuildInstance(inst))
}

// documentsFromCUE compiles every scenario under the top-level "scenario"
// struct, or the root value itself when that struct is absent.
func documentsFromCUE(value cue.Value) ([]*ir.Document, error) {
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	scenarios := value.LookupPath(cue.ParsePath("scenario"))
	if !scenarios.Exists() {
		doc, err := CompileDocument(value)
		if err != nil {
			return nil, err
		}
		return []*ir.Document{doc}, nil
	}

	iter, err := scenarios.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var docs []*ir.Document
	for iter.Next() {
		doc, err := CompileDocument(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("scenario.%s: %w", iter.Label(), err)
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, &CompileError{Field: "scenario", Message: "no scenarios declared", Pos: scenarios.Pos()}
	}
	return docs, nil
}
