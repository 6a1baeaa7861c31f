package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyPointSet is the list of statements an essay on Topic is expected to
// address. Point order is kept for feedback but carries no weight.
type KeyPointSet struct {
	Topic  string   `json:"topic" yaml:"topic"`
	Points []string `json:"points" yaml:"points"`
}

// UnmarshalJSON accepts points either as an array or as one newline
// separated string.
func (k *KeyPointSet) UnmarshalJSON(data []byte) error {
	var raw struct {
		Topic  string          `json:"topic"`
		Points json.RawMessage `json:"points"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	k.Topic = raw.Topic
	k.Points = nil

	if len(raw.Points) == 0 || string(raw.Points) == "null" {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw.Points, &list); err == nil {
		k.Points = list
		return nil
	}

	var text string
	if err := json.Unmarshal(raw.Points, &text); err != nil {
		return fmt.Errorf("key points: points must be an array of strings or a string")
	}
	k.Points = ParsePoints(text)
	return nil
}

func (k *KeyPointSet) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Topic  string    `yaml:"topic"`
		Points yaml.Node `yaml:"points"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	k.Topic = raw.Topic
	k.Points = nil

	switch raw.Points.Kind {
	case 0:
		return nil
	case yaml.SequenceNode:
		return raw.Points.Decode(&k.Points)
	case yaml.ScalarNode:
		k.Points = ParsePoints(raw.Points.Value)
		return nil
	default:
		return fmt.Errorf("key points: points must be a list or a string, line %d", raw.Points.Line)
	}
}

// ParsePoints splits text into one key point per non-blank line.
func ParsePoints(text string) []string {
	lines := strings.Split(text, "\n")
	points := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			points = append(points, trimmed)
		}
	}
	return points
}
