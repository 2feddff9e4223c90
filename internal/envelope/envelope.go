// Package envelope defines the wire record exchanged through a task queue:
// one task invocation, its arguments, and its retry/ack bookkeeping.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSerialization is returned when an Envelope fails to encode or decode.
var ErrSerialization = errors.New("envelope: serialization error")

// Envelope is the unit exchanged through a queue: one task invocation.
//
// StartTime is a Unix timestamp in seconds and is only meaningful while the
// envelope is in the in-flight set; it is zero otherwise.
type Envelope struct {
	ID                string
	CallableIdent     string
	Args              []any
	Kwargs            map[string]any
	RetryCount        int
	MaxRetryCount     int
	AckTimeoutSeconds int
	StartTime         int64
}

// ClearStartTime resets StartTime to its zero value, matching the reaper's
// requirement to drop stale in-flight timestamps before requeuing.
func (e *Envelope) ClearStartTime() {
	e.StartTime = 0
}

// wireFormat mirrors the historical field names and the two-element
// [args, kwargs] "message" tuple that asyncify's Python original used.
type wireFormat struct {
	ID                string          `json:"id"`
	CallableFuncIdent string          `json:"callable_func_ident"`
	Message           json.RawMessage `json:"message"`
	RetryCount        int             `json:"retry_count"`
	MaxRetryCount     int             `json:"max_retry_count"`
	AckTimeout        int             `json:"ack_timeout"`
	StartTime         int64           `json:"start_time,omitempty"`
}

// MarshalJSON encodes the envelope using the wire field names from the
// external interface contract: callable_func_ident, and message as
// [args_array, kwargs_object].
func (e Envelope) MarshalJSON() ([]byte, error) {
	args := e.Args
	if args == nil {
		args = []any{}
	}
	kwargs := e.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	message, err := json.Marshal([2]any{args, kwargs})
	if err != nil {
		return nil, fmt.Errorf("%w: encode message tuple: %v", ErrSerialization, err)
	}
	return json.Marshal(wireFormat{
		ID:                e.ID,
		CallableFuncIdent: e.CallableIdent,
		Message:           message,
		RetryCount:        e.RetryCount,
		MaxRetryCount:     e.MaxRetryCount,
		AckTimeout:        e.AckTimeoutSeconds,
		StartTime:         e.StartTime,
	})
}

// UnmarshalJSON decodes the wire format produced by MarshalJSON.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireFormat
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	var tuple [2]json.RawMessage
	if len(w.Message) > 0 {
		if err := json.Unmarshal(w.Message, &tuple); err != nil {
			return fmt.Errorf("%w: decode message tuple: %v", ErrSerialization, err)
		}
	}

	var args []any
	if len(tuple[0]) > 0 {
		if err := json.Unmarshal(tuple[0], &args); err != nil {
			return fmt.Errorf("%w: decode args: %v", ErrSerialization, err)
		}
	}
	if args == nil {
		args = []any{}
	}

	var kwargs map[string]any
	if len(tuple[1]) > 0 {
		if err := json.Unmarshal(tuple[1], &kwargs); err != nil {
			return fmt.Errorf("%w: decode kwargs: %v", ErrSerialization, err)
		}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	e.ID = w.ID
	e.CallableIdent = w.CallableFuncIdent
	e.Args = args
	e.Kwargs = kwargs
	e.RetryCount = w.RetryCount
	e.MaxRetryCount = w.MaxRetryCount
	e.AckTimeoutSeconds = w.AckTimeout
	e.StartTime = w.StartTime
	return nil
}

// Serializer encodes an Envelope to bytes for storage in Redis.
type Serializer func(*Envelope) ([]byte, error)

// Deserializer decodes bytes back into an Envelope.
type Deserializer func([]byte) (*Envelope, error)

// DefaultSerialize is the structured-text (JSON) codec used by a Queue
// unless a different Serializer is injected at construction.
func DefaultSerialize(e *Envelope) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// DefaultDeserialize is the counterpart to DefaultSerialize.
func DefaultDeserialize(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		// UnmarshalJSON wraps its own errors, but json.Unmarshal rejects
		// syntactically invalid input before ever calling it.
		if errors.Is(err, ErrSerialization) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return &e, nil
}
