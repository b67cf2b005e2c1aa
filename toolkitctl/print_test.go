package main

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/arcanewizards/arcane/protocol"
)

func TestRenderTree(t *testing.T) {
	root, err := protocol.ParseSnapshot(protocol.Snapshot(`{
		"key": 1, "namespace": "core", "component": "group", "title": "Desk", "direction": "vertical",
		"children": [
			{"key": 2, "namespace": "core", "component": "label", "text": "Cue 1"}
		]
	}`))
	assert.Equal(t, err, nil)

	printer := newTreePrinter(true)
	assert.Equal(
		t,
		printer.render(root),
		"1 core/group direction=\"vertical\" title=\"Desk\"\n"+
			"  2 core/label text=\"Cue 1\"\n",
	)
	assert.Equal(t, printer.render(nil), "")
}

func TestLineDiff(t *testing.T) {
	printer := newTreePrinter(true)

	from := "1 core/group\n  2 core/label text=\"Cue 1\"\n"
	to := "1 core/group\n  2 core/label text=\"Cue 2\"\n"
	assert.Equal(
		t,
		printer.lineDiff(from, to),
		"  1 core/group\n"+
			"-   2 core/label text=\"Cue 1\"\n"+
			"+   2 core/label text=\"Cue 2\"\n",
	)

	// unchanged lines far from a change are not shown
	from = "1\n2\n3\n4\n5\n6\n7\n"
	to = "1\n2\n3\n4\n5\n6\n8\n"
	assert.Equal(t, printer.lineDiff(from, to), "  5\n  6\n- 7\n+ 8\n")

	assert.Equal(t, printer.lineDiff(from, from), "")
}
