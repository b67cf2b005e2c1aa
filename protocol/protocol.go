package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

/*
Wire protocol between a toolkit server and its viewers.

Every envelope is a json object with a `type` member.
Server to client:
- metadata       sent once, first, carries the connection uuid
- tree-full      the full serialized component tree
- tree-diff      a diff against the last tree sent to this connection
- call-response  the result of a component-call, correlated by request id
Client to server:
- component-message  fire-and-forget, addressed by namespace and component key
- component-call     request/response, addressed like a message plus request id and action
*/

const (
	TypeMetadata         = "metadata"
	TypeTreeFull         = "tree-full"
	TypeTreeDiff         = "tree-diff"
	TypeCallResponse     = "call-response"
	TypeComponentMessage = "component-message"
	TypeComponentCall    = "component-call"
)

// namespace of the built-in components
const CoreNamespace = "core"

// For detecting the incoming message type.
type MessageType struct {
	Type string `json:"type"`
}

// Snapshot is the serialized json of a component tree at one instant.
// It is treated as an immutable value.
type Snapshot []byte

func (self Snapshot) MarshalJSON() ([]byte, error) {
	if self == nil {
		return []byte("null"), nil
	}
	return self, nil
}

func (self *Snapshot) UnmarshalJSON(data []byte) error {
	*self = append((*self)[0:0], data...)
	return nil
}

// Diff is a structural delta between two snapshots. The encoding is owned by the differencer.
type Diff []byte

func (self Diff) MarshalJSON() ([]byte, error) {
	if self == nil {
		return []byte("null"), nil
	}
	return self, nil
}

func (self *Diff) UnmarshalJSON(data []byte) error {
	*self = append((*self)[0:0], data...)
	return nil
}

// Sent from server to client.
type Metadata struct {
	Type           string `json:"type"`
	ConnectionUuid string `json:"connectionUuid"`
}

// Sent from server to client.
type TreeFull struct {
	Type string   `json:"type"`
	Root Snapshot `json:"root"`
}

// Sent from server to client.
type TreeDiff struct {
	Type string `json:"type"`
	Diff Diff   `json:"diff"`
}

// Sent from server to client.
type CallResponse struct {
	Type      string `json:"type"`
	Namespace string `json:"namespace"`
	RequestId int64  `json:"requestId"`
	Success   bool   `json:"success"`
	// set when `Success`
	ReturnValue json.RawMessage `json:"returnValue,omitempty"`
	// set when not `Success`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Sent from client to server.
type ComponentMessage struct {
	Type         string `json:"type"`
	Namespace    string `json:"namespace"`
	ComponentKey int64  `json:"componentKey"`
	// the kind of the addressed component, set by most messages
	Component string `json:"component,omitempty"`

	// the full envelope, for decoding type-specific fields
	Raw json.RawMessage `json:"-"`
}

// Decode unmarshals the type-specific fields of the message into `v`.
func (self *ComponentMessage) Decode(v any) error {
	return json.Unmarshal(self.Raw, v)
}

// Sent from client to server.
type ComponentCall struct {
	Type         string `json:"type"`
	Namespace    string `json:"namespace"`
	ComponentKey int64  `json:"componentKey"`
	RequestId    int64  `json:"requestId"`
	Action       string `json:"action"`

	// the full envelope, for decoding action-specific arguments
	Raw json.RawMessage `json:"-"`
}

// Decode unmarshals the action-specific arguments of the call into `v`.
func (self *ComponentCall) Decode(v any) error {
	return json.Unmarshal(self.Raw, v)
}

// ProtocolError is a malformed or unexpected envelope.
type ProtocolError struct {
	Message string
}

func (self *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", self.Message)
}

func protocolErrorf(format string, a ...any) error {
	return &ProtocolError{
		Message: fmt.Sprintf(format, a...),
	}
}

func IsProtocolError(err error) bool {
	var protocolErr *ProtocolError
	return errors.As(err, &protocolErr)
}

// ParseClientMessage decodes an envelope sent by a client.
// The result is either a `*ComponentMessage` or a `*ComponentCall`.
func ParseClientMessage(data []byte) (any, error) {
	var mt MessageType
	if err := json.Unmarshal(data, &mt); err != nil {
		return nil, protocolErrorf("%s", err)
	}
	switch mt.Type {
	case TypeComponentMessage:
		var message ComponentMessage
		if err := json.Unmarshal(data, &message); err != nil {
			return nil, protocolErrorf("%s: %s", mt.Type, err)
		}
		if message.Namespace == "" {
			return nil, protocolErrorf("%s: missing namespace", mt.Type)
		}
		message.Raw = append(json.RawMessage(nil), data...)
		return &message, nil
	case TypeComponentCall:
		var call ComponentCall
		if err := json.Unmarshal(data, &call); err != nil {
			return nil, protocolErrorf("%s: %s", mt.Type, err)
		}
		if call.Namespace == "" {
			return nil, protocolErrorf("%s: missing namespace", mt.Type)
		}
		if call.Action == "" {
			return nil, protocolErrorf("%s: missing action", mt.Type)
		}
		call.Raw = append(json.RawMessage(nil), data...)
		return &call, nil
	default:
		return nil, protocolErrorf("unknown client message type: %q", mt.Type)
	}
}

// ParseServerMessage decodes an envelope sent by a server.
// The result is one of `*Metadata`, `*TreeFull`, `*TreeDiff`, `*CallResponse`.
func ParseServerMessage(data []byte) (any, error) {
	var mt MessageType
	if err := json.Unmarshal(data, &mt); err != nil {
		return nil, protocolErrorf("%s", err)
	}
	var message any
	switch mt.Type {
	case TypeMetadata:
		message = &Metadata{}
	case TypeTreeFull:
		message = &TreeFull{}
	case TypeTreeDiff:
		message = &TreeDiff{}
	case TypeCallResponse:
		message = &CallResponse{}
	default:
		return nil, protocolErrorf("unknown server message type: %q", mt.Type)
	}
	if err := json.Unmarshal(data, message); err != nil {
		return nil, protocolErrorf("%s: %s", mt.Type, err)
	}
	return message, nil
}

// EncodeComponentMessage merges the type-specific `fields` (a struct or map, may be nil)
// into a component-message envelope.
func EncodeComponentMessage(namespace string, componentKey int64, component string, fields any) ([]byte, error) {
	envelope, err := fieldsMap(fields)
	if err != nil {
		return nil, err
	}
	envelope["type"] = TypeComponentMessage
	envelope["namespace"] = namespace
	envelope["componentKey"] = componentKey
	if component != "" {
		envelope["component"] = component
	}
	return json.Marshal(envelope)
}

// EncodeComponentCall merges the action-specific `args` (a struct or map, may be nil)
// into a component-call envelope.
func EncodeComponentCall(namespace string, componentKey int64, requestId int64, action string, args any) ([]byte, error) {
	envelope, err := fieldsMap(args)
	if err != nil {
		return nil, err
	}
	envelope["type"] = TypeComponentCall
	envelope["namespace"] = namespace
	envelope["componentKey"] = componentKey
	envelope["requestId"] = requestId
	envelope["action"] = action
	return json.Marshal(envelope)
}

func fieldsMap(fields any) (map[string]any, error) {
	envelope := map[string]any{}
	if fields == nil {
		return envelope, nil
	}
	fieldsJson, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fieldsJson, &envelope); err != nil {
		return nil, fmt.Errorf("fields must encode to a json object: %w", err)
	}
	if envelope == nil {
		envelope = map[string]any{}
	}
	return envelope, nil
}
