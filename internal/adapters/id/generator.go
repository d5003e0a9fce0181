package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

func (g *Generator) GenerateRunID() string {
	return g.generate("run")
}

func (g *Generator) GenerateCandidateRecordID() string {
	return g.generate("cand")
}

func (g *Generator) GenerateEvaluationRecordID() string {
	return g.generate("eval")
}

func (g *Generator) GenerateComponentVersionID() string {
	return g.generate("cv")
}
