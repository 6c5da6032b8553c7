package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "APT00001", Format("APT", 5, 1))
	assert.Equal(t, "BLK00042", Format("BLK", 5, 42))
	assert.Equal(t, "SLT123456", Format("SLT", 5, 123456))
	assert.Equal(t, "VIS007", Format("VIS", 3, 7))
}
