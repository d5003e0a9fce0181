package models

import "time"

// TextExample is a plain input/expected-answer record with optional
// free-form metadata. The text-task adapter and the CLI's dataset loader do
// not use it; they work with textadapter.Example.
type TextExample struct {
	ID       string         `json:"id"`
	Input    string         `json:"input"`
	Answer   string         `json:"answer"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewTextExample(id, input, answer string) TextExample {
	return TextExample{ID: id, Input: input, Answer: answer}
}

// ComponentVersion records one historical value of a single candidate
// component, keyed by content hash, so a caller can answer "what text was
// component X at iteration Y" without replaying the whole genealogy.
type ComponentVersion struct {
	ID            string     `json:"id"`
	RunID         string     `json:"run_id"`
	ComponentName string     `json:"component_name"`
	ContentHash   string     `json:"content_hash"`
	Content       string     `json:"content"`
	ProgramIdx    int        `json:"program_idx"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	ActivatedAt   *time.Time `json:"activated_at,omitempty"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

func NewComponentVersion(id, runID, componentName, contentHash, content string, programIdx int) *ComponentVersion {
	return &ComponentVersion{
		ID:            id,
		RunID:         runID,
		ComponentName: componentName,
		ContentHash:   contentHash,
		Content:       content,
		ProgramIdx:    programIdx,
		CreatedAt:     time.Now().UTC(),
	}
}

func (c *ComponentVersion) Activate() {
	now := time.Now().UTC()
	c.Active = true
	c.ActivatedAt = &now
}

func (c *ComponentVersion) Deactivate() {
	now := time.Now().UTC()
	c.Active = false
	c.DeactivatedAt = &now
}
