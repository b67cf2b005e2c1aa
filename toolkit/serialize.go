package toolkit

import (
	"encoding/json"

	"github.com/arcanewizards/arcane/protocol"
)

// Serialize encodes the component and its descendants, assigning keys on first use.
// The result depends only on the tree and the id map.
func Serialize(component Component, idMap *IdMap) (protocol.Snapshot, error) {
	treeLock.RLock()
	defer treeLock.RUnlock()

	return serializeLocked(component, idMap)
}

// must be called with `treeLock` held
func serializeLocked(component Component, idMap *IdMap) (protocol.Snapshot, error) {
	snapshotJson, err := json.Marshal(component.Proto(idMap))
	if err != nil {
		return nil, err
	}
	return protocol.Snapshot(snapshotJson), nil
}

// serializeRoot serializes a full root pass and evicts the keys of components
// that are no longer reachable from the root.
// Passes over the same id map must not run concurrently.
func serializeRoot(root Component, idMap *IdMap) (protocol.Snapshot, error) {
	treeLock.RLock()
	defer treeLock.RUnlock()

	idMap.Mark()
	snapshot, err := serializeLocked(root, idMap)
	if err != nil {
		return nil, err
	}
	idMap.Sweep()
	return snapshot, nil
}
