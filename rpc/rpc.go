// Package rpc implements the OCPP-J message framing: Call, CallResult and
// CallError envelopes as JSON arrays with a MessageTypeId discriminator.
package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type MessageType int

const (
	MessageTypeCall       MessageType = 2
	MessageTypeCallResult MessageType = 3
	MessageTypeCallError  MessageType = 4
)

type ErrorCode string

const (
	ErrFormatViolation              ErrorCode = "FormatViolation"
	ErrFormationViolation           ErrorCode = "FormationViolation"
	ErrGenericError                 ErrorCode = "GenericError"
	ErrInternalError                ErrorCode = "InternalError"
	ErrNotImplemented               ErrorCode = "NotImplemented"
	ErrNotSupported                 ErrorCode = "NotSupported"
	ErrOccurrenceConstraintViolation ErrorCode = "OccurrenceConstraintViolation"
	ErrPropertyConstraintViolation  ErrorCode = "PropertyConstraintViolation"
	ErrProtocolError                ErrorCode = "ProtocolError"
	ErrRpcFrameworkError            ErrorCode = "RpcFrameworkError"
	ErrSecurityError                ErrorCode = "SecurityError"
	ErrTypeConstraintViolation      ErrorCode = "TypeConstraintViolation"
)

// maxUniqueIDLen bounds the unique id as required by the OCPP-J spec.
const maxUniqueIDLen = 36

// Message is one decoded OCPP-J frame.
type Message struct {
	Type             MessageType
	UniqueID         string
	Action           string          // Call only
	Payload          json.RawMessage // Call and CallResult
	ErrorCode        ErrorCode       // CallError only
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

// NewMessageID returns a fresh unique id for an outgoing Call.
func NewMessageID() string {
	return uuid.NewString()
}

// NewCall marshals the payload and wraps it in a Call frame.
func NewCall(uniqueID, action string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", action, err)
	}
	return Message{Type: MessageTypeCall, UniqueID: uniqueID, Action: action, Payload: raw}, nil
}

func NewCallResult(uniqueID string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal call result: %w", err)
	}
	return Message{Type: MessageTypeCallResult, UniqueID: uniqueID, Payload: raw}, nil
}

func NewCallError(uniqueID string, code ErrorCode, description string) Message {
	return Message{
		Type:             MessageTypeCallError,
		UniqueID:         uniqueID,
		ErrorCode:        code,
		ErrorDescription: description,
		ErrorDetails:     json.RawMessage(`{}`),
	}
}

// MarshalJSON renders the frame as its wire array form.
func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case MessageTypeCall:
		return json.Marshal([]interface{}{int(m.Type), m.UniqueID, m.Action, m.Payload})
	case MessageTypeCallResult:
		return json.Marshal([]interface{}{int(m.Type), m.UniqueID, m.Payload})
	case MessageTypeCallError:
		details := m.ErrorDetails
		if len(details) == 0 {
			details = json.RawMessage(`{}`)
		}
		return json.Marshal([]interface{}{int(m.Type), m.UniqueID, string(m.ErrorCode), m.ErrorDescription, details})
	}
	return nil, fmt.Errorf("unknown message type %d", m.Type)
}

// FrameError describes a frame that could not be decoded. UniqueID carries
// whatever id could be recovered, so the caller can still answer with a
// CallError.
type FrameError struct {
	UniqueID string
	Code     ErrorCode
	Reason   string
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Decode parses one inbound frame. The top-level shape is validated here;
// payload validation is left to the handler that knows the action.
func Decode(data []byte) (Message, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Message{}, &FrameError{UniqueID: "-1", Code: ErrRpcFrameworkError, Reason: "message is not a JSON array"}
	}
	if len(fields) < 3 {
		return Message{}, &FrameError{UniqueID: "-1", Code: ErrRpcFrameworkError, Reason: "message array too short"}
	}

	var typeID int
	if err := json.Unmarshal(fields[0], &typeID); err != nil {
		return Message{}, &FrameError{UniqueID: "-1", Code: ErrRpcFrameworkError, Reason: "message type id is not a number"}
	}
	var uniqueID string
	if err := json.Unmarshal(fields[1], &uniqueID); err != nil {
		return Message{}, &FrameError{UniqueID: "-1", Code: ErrRpcFrameworkError, Reason: "unique id is not a string"}
	}
	if uniqueID == "" || len(uniqueID) > maxUniqueIDLen {
		return Message{}, &FrameError{UniqueID: "-1", Code: ErrRpcFrameworkError, Reason: "unique id empty or too long"}
	}

	msg := Message{Type: MessageType(typeID), UniqueID: uniqueID}
	switch msg.Type {
	case MessageTypeCall:
		if len(fields) != 4 {
			return Message{}, &FrameError{UniqueID: uniqueID, Code: ErrFormationViolation, Reason: "call frame must have 4 elements"}
		}
		if err := json.Unmarshal(fields[2], &msg.Action); err != nil || msg.Action == "" {
			return Message{}, &FrameError{UniqueID: uniqueID, Code: ErrFormationViolation, Reason: "call action is not a string"}
		}
		msg.Payload = fields[3]
	case MessageTypeCallResult:
		if len(fields) != 3 {
			return Message{}, &FrameError{UniqueID: uniqueID, Code: ErrFormationViolation, Reason: "call result frame must have 3 elements"}
		}
		msg.Payload = fields[2]
	case MessageTypeCallError:
		if len(fields) < 4 || len(fields) > 5 {
			return Message{}, &FrameError{UniqueID: uniqueID, Code: ErrFormationViolation, Reason: "call error frame must have 4 or 5 elements"}
		}
		var code string
		if err := json.Unmarshal(fields[2], &code); err != nil {
			return Message{}, &FrameError{UniqueID: uniqueID, Code: ErrFormationViolation, Reason: "error code is not a string"}
		}
		msg.ErrorCode = ErrorCode(code)
		if err := json.Unmarshal(fields[3], &msg.ErrorDescription); err != nil {
			return Message{}, &FrameError{UniqueID: uniqueID, Code: ErrFormationViolation, Reason: "error description is not a string"}
		}
		if len(fields) == 5 {
			msg.ErrorDetails = fields[4]
		}
	default:
		return Message{}, &FrameError{UniqueID: uniqueID, Code: ErrRpcFrameworkError, Reason: fmt.Sprintf("unknown message type id %d", typeID)}
	}
	return msg, nil
}
