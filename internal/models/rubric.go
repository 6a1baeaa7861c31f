package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScoreDescriptions maps a rubric score level to the text shown for it.
// Rubrics are authored with either integer or string keys ("1".."4"); both
// are normalised to int when the rubric is decoded.
type ScoreDescriptions map[int]string

func (d ScoreDescriptions) Lookup(level int) (string, bool) {
	text, ok := d[level]
	return text, ok
}

func (d *ScoreDescriptions) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("score descriptions: %w", err)
	}

	out := make(ScoreDescriptions, len(raw))
	for key, text := range raw {
		level, err := parseLevel(key)
		if err != nil {
			return err
		}
		if _, dup := out[level]; dup {
			return fmt.Errorf("score descriptions: level %d is defined more than once", level)
		}
		out[level] = text
	}
	*d = out
	return nil
}

func (d *ScoreDescriptions) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("score descriptions: expected a mapping, got line %d", value.Line)
	}

	out := make(ScoreDescriptions, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		level, err := parseLevel(value.Content[i].Value)
		if err != nil {
			return err
		}
		if _, dup := out[level]; dup {
			return fmt.Errorf("score descriptions: level %d is defined more than once, line %d", level, value.Content[i].Line)
		}
		out[level] = value.Content[i+1].Value
	}
	*d = out
	return nil
}

func parseLevel(key string) (int, error) {
	level, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, fmt.Errorf("score descriptions: level %q is not an integer", key)
	}
	return level, nil
}

type Criterion struct {
	Name   string            `json:"name" yaml:"name"`
	Weight float64           `json:"weight" yaml:"weight"`
	Scores ScoreDescriptions `json:"scores" yaml:"scores"`
}

type Rubric struct {
	Name     string      `json:"name" yaml:"name"`
	Criteria []Criterion `json:"criteria" yaml:"criteria"`
}

// DuplicateCriteria returns criterion names that appear more than once, in
// first-seen order.
func (r Rubric) DuplicateCriteria() []string {
	seen := make(map[string]int, len(r.Criteria))
	var dups []string
	for _, c := range r.Criteria {
		seen[c.Name]++
		if seen[c.Name] == 2 {
			dups = append(dups, c.Name)
		}
	}
	return dups
}
