package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDataset_ParsesExamples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.json")
	writeFile(t, path, `{
		"examples": [
			{"id": "1", "inputs": {"question": "2+2"}, "expected": "4"},
			{"id": "2", "inputs": {"question": "3+3"}, "expected": "6"}
		]
	}`)

	examples, err := loadDataset(path)
	if err != nil {
		t.Fatalf("loadDataset: %v", err)
	}
	if len(examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(examples))
	}
	if examples[0].ID != "1" || examples[0].Inputs["question"] != "2+2" || examples[0].Expected != "4" {
		t.Errorf("unexpected first example: %+v", examples[0])
	}
}

func TestLoadDataset_MissingFileErrors(t *testing.T) {
	if _, err := loadDataset(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing dataset file")
	}
}

func TestLoadDataset_InvalidJSONErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	writeFile(t, path, `not json`)

	if _, err := loadDataset(path); err == nil {
		t.Error("expected an error for invalid JSON")
	}
}

func TestLoadSeedCandidate_ParsesFlatMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	writeFile(t, path, `{"main": "you are a helpful assistant"}`)

	candidate, err := loadSeedCandidate(path)
	if err != nil {
		t.Fatalf("loadSeedCandidate: %v", err)
	}
	if candidate["main"] != "you are a helpful assistant" {
		t.Errorf("unexpected candidate: %+v", candidate)
	}
}

func TestLoadSeedCandidate_MissingFileErrors(t *testing.T) {
	if _, err := loadSeedCandidate(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing seed file")
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
