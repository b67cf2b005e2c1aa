package toolkit

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/google/go-cmp/cmp"
)

func decodeSnapshot(t *testing.T, snapshot []byte) map[string]any {
	var out map[string]any
	err := json.Unmarshal(snapshot, &out)
	assert.Equal(t, err, nil)
	return out
}

func TestSerialize(t *testing.T) {
	idMap := NewIdMap()
	group := NewGroup(GroupProps{Title: "Stage"})
	label := NewLabel(LabelProps{Text: "hello"})
	button := NewButton(ButtonProps{Text: "Go"})
	assert.Equal(t, group.AddChildren(label, button), nil)

	snapshot, err := Serialize(group, idMap)
	assert.Equal(t, err, nil)

	expected := map[string]any{
		"key":           float64(1),
		"namespace":     "core",
		"component":     "group",
		"title":         "Stage",
		"direction":     "horizontal",
		"editableTitle": false,
		"children": []any{
			map[string]any{
				"key":       float64(2),
				"namespace": "core",
				"component": "label",
				"text":      "hello",
			},
			map[string]any{
				"key":       float64(3),
				"namespace": "core",
				"component": "button",
				"text":      "Go",
				"state": map[string]any{
					"state": "normal",
				},
			},
		},
	}
	if diff := cmp.Diff(expected, decodeSnapshot(t, snapshot)); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeDeterministic(t *testing.T) {
	idMap := NewIdMap()
	group := NewGroup(GroupProps{})
	assert.Equal(t, group.AddChildren(
		NewLabel(LabelProps{Text: "a"}),
		NewSliderButton(SliderButtonProps{}),
		NewTabs(),
	), nil)

	a, err := Serialize(group, idMap)
	assert.Equal(t, err, nil)
	b, err := Serialize(group, idMap)
	assert.Equal(t, err, nil)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, idMap.Len(), 4)
}

func TestSerializeEmptyChildren(t *testing.T) {
	// children are always an array, never null
	snapshot, err := Serialize(NewGroup(GroupProps{}), NewIdMap())
	assert.Equal(t, err, nil)
	if diff := cmp.Diff([]any{}, decodeSnapshot(t, snapshot)["children"]); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeButtonError(t *testing.T) {
	button := NewButton(ButtonProps{Text: "Go"})
	button.SetError("failed")
	snapshot, err := Serialize(button, NewIdMap())
	assert.Equal(t, err, nil)
	expected := map[string]any{
		"state": "error",
		"error": "failed",
	}
	if diff := cmp.Diff(expected, decodeSnapshot(t, snapshot)["state"]); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestIdMapStable(t *testing.T) {
	idMap := NewIdMap()
	group := NewGroup(GroupProps{})
	a := NewLabel(LabelProps{})
	b := NewLabel(LabelProps{})
	assert.Equal(t, group.AddChildren(a, b), nil)

	_, err := serializeRoot(group, idMap)
	assert.Equal(t, err, nil)
	aId, ok := idMap.Lookup(a)
	assert.Equal(t, ok, true)
	bId, _ := idMap.Lookup(b)
	assert.NotEqual(t, aId, bId)

	// stable while reachable, across reorders
	assert.Equal(t, group.AddChild(a), nil)
	_, err = serializeRoot(group, idMap)
	assert.Equal(t, err, nil)
	aId2, _ := idMap.Lookup(a)
	assert.Equal(t, aId, aId2)
	assert.Equal(t, idMap.Id(a), aId)

	// evicted when unreachable after a full pass, and never reused
	assert.Equal(t, group.RemoveChild(b), nil)
	_, err = serializeRoot(group, idMap)
	assert.Equal(t, err, nil)
	_, ok = idMap.Lookup(b)
	assert.Equal(t, ok, false)
	assert.Equal(t, idMap.Len(), 2)

	assert.Equal(t, group.AddChild(b), nil)
	_, err = serializeRoot(group, idMap)
	assert.Equal(t, err, nil)
	bId2, _ := idMap.Lookup(b)
	assert.NotEqual(t, bId, bId2)
	assert.Equal(t, bId2 > aId, true)
}

func TestIdMapLookupDoesNotAssign(t *testing.T) {
	idMap := NewIdMap()
	a := NewLabel(LabelProps{})
	_, ok := idMap.Lookup(a)
	assert.Equal(t, ok, false)
	assert.Equal(t, idMap.Len(), 0)
	assert.Equal(t, idMap.Id(a), int64(1))
	assert.Equal(t, idMap.Id(a), int64(1))
}

func TestTimelineState(t *testing.T) {
	timeline := NewTimeline(TimelineProps{Title: "Show"})
	timeline.SetState(StoppedTimelineState(60000, 1500))

	snapshot, err := Serialize(timeline, NewIdMap())
	assert.Equal(t, err, nil)
	expected := map[string]any{
		"state":             "stopped",
		"totalTimeMillis":   float64(60000),
		"currentTimeMillis": float64(1500),
	}
	if diff := cmp.Diff(expected, decodeSnapshot(t, snapshot)["state"]); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}
