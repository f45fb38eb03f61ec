package embedded

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadIsGLB(t *testing.T) {
	p := Payload()
	require.GreaterOrEqual(t, len(p), 20)

	assert.Equal(t, "glTF", string(p[:4]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(p[4:8]))
	assert.Equal(t, uint32(len(p)), binary.LittleEndian.Uint32(p[8:12]))
	assert.Equal(t, "JSON", string(p[16:20]))
}
