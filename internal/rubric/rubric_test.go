package rubric

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r := Default()

	assert.Equal(t, "Essay Quality Rubric", r.Name)
	require.Len(t, r.Criteria, 3)

	names := []string{r.Criteria[0].Name, r.Criteria[1].Name, r.Criteria[2].Name}
	assert.Equal(t, []string{"Content Accuracy", "Clarity and Cohesion", "Use of Evidence"}, names)
	weights := 0.0
	for _, c := range r.Criteria {
		weights += c.Weight
		assert.Len(t, c.Scores, 4, c.Name)
	}
	assert.InDelta(t, 1.0, weights, 1e-9)
	assert.Equal(t, "Content is highly accurate and relevant.", r.Criteria[0].Scores[4])
	assert.Empty(t, r.DuplicateCriteria())
}

func TestDefault_ReturnsCopy(t *testing.T) {
	r := Default()
	r.Criteria[0].Scores[4] = "changed"

	assert.Equal(t, "Content is highly accurate and relevant.", Default().Criteria[0].Scores[4])
}

func TestSampleKeyPoints(t *testing.T) {
	k := SampleKeyPoints()

	assert.Equal(t, "The Importance of Renewable Energy", k.Topic)
	require.Len(t, k.Points, 4)
	assert.Equal(t, "Renewable energy sources reduce reliance on fossil fuels.", k.Points[0])
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "rubric.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
name: Short
criteria:
  - name: Focus
    weight: 1
    scores:
      1: Off topic.
      4: On topic.
`), 0o644))

	r, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "Short", r.Name)
	assert.Equal(t, "On topic.", r.Criteria[0].Scores[4])

	jsonPath := filepath.Join(dir, "rubric.json")
	require.NoError(t, os.WriteFile(jsonPath,
		[]byte(`{"name":"J","criteria":[{"name":"Focus","weight":0.5,"scores":{"2":"Some."}}]}`), 0o644))

	r, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 0.5, r.Criteria[0].Weight)
	assert.Equal(t, "Some.", r.Criteria[0].Scores[2])

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadKeyPointsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("topic: T\npoints: |\n  first\n\n  second\n"), 0o644))

	k, err := LoadKeyPointsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "T", k.Topic)
	assert.Equal(t, []string{"first", "second"}, k.Points)
}

func TestLoadFile_Empty(t *testing.T) {
	dir := t.TempDir()
	rubricPath := filepath.Join(dir, "rubric.yaml")
	require.NoError(t, os.WriteFile(rubricPath, []byte("name: Empty\n"), 0o644))
	pointsPath := filepath.Join(dir, "kp.yaml")
	require.NoError(t, os.WriteFile(pointsPath, []byte("topic: T\npoints: []\n"), 0o644))

	_, err := LoadFile(rubricPath)
	assert.ErrorContains(t, err, "no criteria")

	_, err = LoadKeyPointsFile(pointsPath)
	assert.ErrorContains(t, err, "no key points")
}
