// Package rubric provides the built-in sample rubric and key points and
// loads rubric and key point files from disk.
package rubric

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/RubachokBoss/essay-grader/internal/models"
)

var (
	//go:embed sample_rubric.yaml
	sampleRubric []byte

	//go:embed sample_keypoints.yaml
	sampleKeyPoints []byte
)

// Default returns a fresh copy of the sample essay quality rubric.
func Default() models.Rubric {
	var r models.Rubric
	if err := yaml.Unmarshal(sampleRubric, &r); err != nil {
		panic(fmt.Sprintf("rubric: embedded sample rubric is invalid: %v", err))
	}
	return r
}

// SampleKeyPoints returns a fresh copy of the sample key point set.
func SampleKeyPoints() models.KeyPointSet {
	var k models.KeyPointSet
	if err := yaml.Unmarshal(sampleKeyPoints, &k); err != nil {
		panic(fmt.Sprintf("rubric: embedded sample key points are invalid: %v", err))
	}
	return k
}

// LoadFile reads a rubric from a YAML or JSON file. The rubric must have
// at least one criterion.
func LoadFile(path string) (models.Rubric, error) {
	var r models.Rubric
	if err := decodeFile(path, &r); err != nil {
		return models.Rubric{}, err
	}
	if len(r.Criteria) == 0 {
		return models.Rubric{}, fmt.Errorf("%s: rubric has no criteria", path)
	}
	return r, nil
}

func LoadKeyPointsFile(path string) (models.KeyPointSet, error) {
	var k models.KeyPointSet
	if err := decodeFile(path, &k); err != nil {
		return models.KeyPointSet{}, err
	}
	if len(k.Points) == 0 {
		return models.KeyPointSet{}, fmt.Errorf("%s: no key points", path)
	}
	return k, nil
}

// decodeFile reads YAML from path. JSON files decode too since JSON is valid YAML.
func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
