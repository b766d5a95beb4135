// Package bankfile reads the versioned question bank YAML artifact.
package bankfile

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"weld-academy-service/internal/domain"
)

// Document is the on-disk layout of a bank file.
type Document struct {
	Version   string            `yaml:"version"`
	Questions []domain.Question `yaml:"questions"`
}

// Loader loads the bank from a YAML file on every call; wrap it in a cache.
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) LoadBank(_ context.Context) ([]domain.Question, error) {
	doc, err := ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	return doc.Questions, nil
}

// ReadFile parses and validates a bank file.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read bank: %w", err)
	}
	return Parse(data)
}

// Parse decodes a bank document and checks its structural rules.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode bank: %w", err)
	}
	for i := range doc.Questions {
		topic, err := domain.ParseTopic(string(doc.Questions[i].Topic))
		if err != nil {
			return Document{}, fmt.Errorf("%w: question %s: %v", domain.ErrInvalidBank, doc.Questions[i].ID, err)
		}
		doc.Questions[i].Topic = topic
	}
	if err := domain.ValidateBank(doc.Questions); err != nil {
		return Document{}, err
	}
	return doc, nil
}
