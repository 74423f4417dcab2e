package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	groups := c.Groups()
	require.Len(t, groups, 8)
	assert.Equal(t, Group{ID: "ID1", Price: 28000}, groups[0])
	assert.Equal(t, Group{ID: "ID8", Price: 9000}, groups[7])

	p, ok := c.Price("ID7")
	assert.True(t, ok)
	assert.Equal(t, int64(10000), p)

	_, ok = c.Price("ID9")
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	c, err := Parse(" A = 9000 , B=12000,")
	require.NoError(t, err)
	assert.Equal(t, []Group{{"A", 9000}, {"B", 12000}}, c.Groups())
	assert.True(t, c.Has("B"))
}

func TestParseErrors(t *testing.T) {
	for _, spec := range []string{"", "A", "A=0", "A=x", "=100", "A=1,A=2"} {
		_, err := Parse(spec)
		assert.Error(t, err, spec)
	}
	_, err := Parse(" , ")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestGroupsIsCopy(t *testing.T) {
	c := Default()
	g := c.Groups()
	g[0].Price = 1
	p, _ := c.Price("ID1")
	assert.Equal(t, int64(28000), p)
}
