package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gepa-run/gepa-engine/internal/gepa/textadapter"
)

// datasetFile is the on-disk shape of a train or validation set: a JSON
// object whose "examples" field is an array of labeled examples.
type datasetFile struct {
	Examples []datasetExample `json:"examples"`
}

type datasetExample struct {
	ID       string            `json:"id"`
	Inputs   map[string]string `json:"inputs"`
	Expected string            `json:"expected"`
}

func loadDataset(path string) ([]textadapter.Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	var file datasetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	examples := make([]textadapter.Example, len(file.Examples))
	for i, e := range file.Examples {
		examples[i] = textadapter.Example{ID: e.ID, Inputs: e.Inputs, Expected: e.Expected}
	}
	return examples, nil
}

func loadSeedCandidate(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed candidate %s: %w", path, err)
	}
	var candidate map[string]string
	if err := json.Unmarshal(data, &candidate); err != nil {
		return nil, fmt.Errorf("parse seed candidate %s: %w", path, err)
	}
	return candidate, nil
}
