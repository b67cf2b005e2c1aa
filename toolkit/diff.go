package toolkit

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/wI2L/jsondiff"

	"github.com/arcanewizards/arcane/protocol"
)

// Differ computes the delta that turns one snapshot into another,
// and applies it on the viewer side.
type Differ interface {
	Diff(prev protocol.Snapshot, next protocol.Snapshot) (protocol.Diff, error)
	Patch(prev protocol.Snapshot, diff protocol.Diff) (protocol.Snapshot, error)
	// an empty diff is not sent
	IsEmpty(diff protocol.Diff) bool
}

// diff encodings. The server and its viewers must use the same one.
const (
	DiffJsonPatch  = "json-patch"
	DiffMergePatch = "merge-patch"
)

func NewDiffer(encoding string) (Differ, error) {
	switch encoding {
	case DiffJsonPatch:
		return NewJsonPatchDiffer(), nil
	case DiffMergePatch:
		return NewMergePatchDiffer(), nil
	default:
		return nil, fmt.Errorf("Unknown diff encoding: %s", encoding)
	}
}

// JsonPatchDiffer encodes diffs as json patches (RFC 6902).
// Arrays are compared index by index, so a change to one child
// is a change to that child's path only.
type JsonPatchDiffer struct {
}

func NewJsonPatchDiffer() *JsonPatchDiffer {
	return &JsonPatchDiffer{}
}

func (self *JsonPatchDiffer) Diff(prev protocol.Snapshot, next protocol.Snapshot) (protocol.Diff, error) {
	patch, err := jsondiff.CompareJSON(prev, next)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return protocol.Diff("[]"), nil
	}
	patchJson, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	return protocol.Diff(patchJson), nil
}

func (self *JsonPatchDiffer) Patch(prev protocol.Snapshot, diff protocol.Diff) (protocol.Snapshot, error) {
	patch, err := jsonpatch.DecodePatch(diff)
	if err != nil {
		return nil, err
	}
	next, err := patch.Apply(prev)
	if err != nil {
		return nil, err
	}
	return protocol.Snapshot(next), nil
}

func (self *JsonPatchDiffer) IsEmpty(diff protocol.Diff) bool {
	var ops []json.RawMessage
	if err := json.Unmarshal(diff, &ops); err != nil {
		return false
	}
	return ops != nil && len(ops) == 0
}

// MergePatchDiffer encodes diffs as json merge patches (RFC 7386).
// Merge patches cannot express a member set to null, which snapshots never contain.
// Arrays that change are replaced whole.
type MergePatchDiffer struct {
}

func NewMergePatchDiffer() *MergePatchDiffer {
	return &MergePatchDiffer{}
}

func (self *MergePatchDiffer) Diff(prev protocol.Snapshot, next protocol.Snapshot) (protocol.Diff, error) {
	patch, err := jsonpatch.CreateMergePatch(prev, next)
	if err != nil {
		return nil, err
	}
	return protocol.Diff(patch), nil
}

func (self *MergePatchDiffer) Patch(prev protocol.Snapshot, diff protocol.Diff) (protocol.Snapshot, error) {
	next, err := jsonpatch.MergePatch(prev, diff)
	if err != nil {
		return nil, err
	}
	return protocol.Snapshot(next), nil
}

func (self *MergePatchDiffer) IsEmpty(diff protocol.Diff) bool {
	trimmed := bytes.TrimSpace(diff)
	if bytes.Equal(trimmed, []byte("{}")) {
		return true
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &members); err != nil {
		return false
	}
	return members != nil && len(members) == 0
}
