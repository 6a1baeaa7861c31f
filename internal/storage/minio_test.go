package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "essays/abc.txt", EssayKey("abc"))
	assert.Equal(t, "results/abc.json", ResultKey("abc"))
}
