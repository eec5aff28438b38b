package standards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/csr/internal/config"
)

func TestCatalogGetAndList(t *testing.T) {
	sets := map[string]*Set{
		"zeta":  {ID: "zeta", Name: "Zeta Guide", Version: "2.0", Rules: sampleSet().Rules},
		"alpha": {ID: "alpha", Version: "1.0"},
	}
	c := NewCatalog(sets, config.DefaultPolicy().Retrieval)

	assert.Equal(t, 2, c.Len())

	e, ok := c.Get("zeta")
	require.True(t, ok)
	assert.Same(t, sets["zeta"], e.Set)
	require.NotNil(t, e.Index)
	assert.Len(t, e.Index.Retrieve("", config.StrictnessHigh), 3)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []Info{
		{ID: "alpha", Name: "alpha", Version: "1.0"},
		{ID: "zeta", Name: "Zeta Guide", Version: "2.0"},
	}, c.List())
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	_, ok := c.Get("any")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.List())
	assert.NotNil(t, c.List())
}
