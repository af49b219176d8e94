// Package protocol defines the message records exchanged between a backend
// and its host, and the JSON codec converting them to and from wire text.
//
// Three record kinds travel the wire: Commands inbound, Responses and Events
// outbound. A Response is correlated to its Command by integer id; Events are
// uncorrelated and may be pushed at any time.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Status values carried by outbound messages.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusEvent   = "event"
)

// Command is a request from the host naming a backend operation.
type Command struct {
	// Name is the operation to invoke.
	Name string `json:"cmd"`
	// ID correlates the eventual Response to this Command. The host is
	// responsible for uniqueness; the runtime does not enforce it.
	ID int64 `json:"id"`
	// Params holds keyword arguments for the operation.
	Params map[string]any `json:"params"`
}

// Response is the reply to a single Command. Exactly one of Result and Error
// is meaningful, selected by Status.
type Response struct {
	ID        int64
	Status    string
	Result    any
	Error     string
	Traceback string
}

// MarshalJSON emits the wire shape: success responses always carry a result
// field (even when the value is null), error responses carry error and an
// optional traceback, never a result.
func (r Response) MarshalJSON() ([]byte, error) {
	m := map[string]any{"id": r.ID, "status": r.Status}
	if r.Status == StatusError {
		m["error"] = r.Error
		if r.Traceback != "" {
			m["traceback"] = r.Traceback
		}
	} else {
		m["result"] = r.Result
	}
	return json.Marshal(m)
}

// Event is an unsolicited outbound notification. It carries no correlation
// id; backends needing correlation embed their own token in the payload.
type Event struct {
	Name    string `json:"cmd"`
	Status  string `json:"status"`
	Payload any    `json:"result"`
}

// DecodeError reports inbound text that is not a valid encoded Command.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("Invalid JSON: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeCommand parses one inbound message. Missing fields are tolerated:
// an absent name decodes to the empty string, an absent id to 0, and absent
// params to an empty map.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, &DecodeError{Err: err}
	}
	if cmd.Params == nil {
		cmd.Params = map[string]any{}
	}
	return cmd, nil
}

// SuccessResponse builds a success Response for the given correlation id.
func SuccessResponse(id int64, result any) Response {
	return Response{ID: id, Status: StatusSuccess, Result: result}
}

// ErrorResponse builds an error Response for the given correlation id.
func ErrorResponse(id int64, msg string) Response {
	return Response{ID: id, Status: StatusError, Error: msg}
}

// EncodeResponse serializes a Response. Encoding fails only when the result
// value is not JSON-serializable; callers degrade that to an error Response,
// which always encodes.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response %d: %w", resp.ID, err)
	}
	return data, nil
}

// EncodeEvent serializes an Event, forcing the event status.
func EncodeEvent(ev Event) ([]byte, error) {
	ev.Status = StatusEvent
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event %q: %w", ev.Name, err)
	}
	return data, nil
}
