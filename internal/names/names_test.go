package names

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/gltfview/internal/render"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	em := render.NewEntityManager()
	a, b := em.Create(), em.Create()

	r.Add(a, "Root")
	r.Add(b, "Cube")
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "Cube", r.Name(b))

	r.Add(b, "Box")
	assert.Equal(t, "Box", r.Name(b))
	assert.Equal(t, 2, r.Len())

	r.Remove(a)
	_, ok := r.Lookup(a)
	assert.False(t, ok)
	assert.Equal(t, "", r.Name(a))

	r.Clear()
	assert.Zero(t, r.Len())
}

func TestEntityManagerNeverIssuesZero(t *testing.T) {
	em := render.NewEntityManager()
	seen := map[render.Entity]bool{}
	for i := 0; i < 100; i++ {
		e := em.Create()
		assert.NotZero(t, e)
		assert.False(t, seen[e], "duplicate entity %d", e)
		seen[e] = true
	}
}
