package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterfacesOf(t *testing.T) {
	g := sampleGraph(t)

	far := func(as []Attachment) map[string]string {
		out := make(map[string]string, len(as))
		for _, a := range as {
			out[a.Edge.ID] = a.Other.ID
		}
		return out
	}

	// B and its subtree {C, D}: ab reaches out to A, bc and cb stay inside.
	got := g.InterfacesOf(Set{"B": {}, "C": {}, "D": {}})
	assert.Equal(t, map[string]string{"ab": "A", "bc": "C", "cb": "B"}, far(got))
	assert.Equal(t, "ab", got[0].Edge.ID, "edge order is kept")

	got = g.InterfacesOf(Set{"E": {}})
	assert.Equal(t, map[string]string{"ae": "A"}, far(got))
	assert.Equal(t, "1", got[0].Other.RecordID)

	assert.NotNil(t, g.InterfacesOf(Set{}))
	assert.Empty(t, g.InterfacesOf(Set{"nobody": {}}))
}

func TestInterfacesOf_UnknownFarEnd(t *testing.T) {
	g, _ := Build(
		[]SystemRecord{{Name: "A"}},
		[]InterfaceEdge{{ID: "ag", SystemAID: "A", SystemBID: "ghost"}},
		nil,
	)
	got := g.InterfacesOf(Set{"A": {}})
	if assert.Len(t, got, 1) {
		assert.Equal(t, Node{ID: "ghost", Label: "ghost"}, got[0].Other)
	}
}
