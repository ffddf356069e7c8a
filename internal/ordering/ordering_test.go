package ordering

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct {
	id    string
	order int
}

func itemID(i item) string { return i.id }

func ids(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out
}

func TestMove(t *testing.T) {
	in := []item{{id: "a"}, {id: "b"}, {id: "c"}, {id: "d"}}

	out, ok := Move(in, itemID, "a", "c")
	assert.True(t, ok)
	assert.Equal(t, []string{"b", "c", "a", "d"}, ids(out))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(in), "input must not be modified")

	out, ok = Move(in, itemID, "d", "b")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "d", "b", "c"}, ids(out))
}

func TestMove_NoOp(t *testing.T) {
	in := []item{{id: "a"}, {id: "b"}}
	for _, tc := range [][2]string{{"a", "zz"}, {"zz", "a"}, {"a", "a"}} {
		out, ok := Move(in, itemID, tc[0], tc[1])
		assert.False(t, ok, "move %v", tc)
		assert.Equal(t, []string{"a", "b"}, ids(out))
	}
}

func TestInsertClamps(t *testing.T) {
	in := []item{{id: "a"}}
	assert.Equal(t, []string{"x", "a"}, ids(Insert(in, -3, item{id: "x"})))
	assert.Equal(t, []string{"a", "x"}, ids(Insert(in, 9, item{id: "x"})))
}

func TestReweigh(t *testing.T) {
	items := []item{{id: "a", order: 7}, {id: "b", order: 2}}
	Reweigh(items, func(it *item, i int) { it.order = i })
	assert.Equal(t, 0, items[0].order)
	assert.Equal(t, 1, items[1].order)
}

func TestFilter(t *testing.T) {
	in := []item{{id: "a"}, {id: "b"}, {id: "c"}}
	out := Filter(in, func(i item) bool { return i.id != "b" })
	assert.Equal(t, []string{"a", "c"}, ids(out))
}
