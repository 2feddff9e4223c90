package envelope

import (
	"errors"
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := []*Envelope{
		{
			ID:                "1700000000.5012345",
			CallableIdent:     "q1:add",
			Args:              []any{float64(1), float64(2)},
			Kwargs:            map[string]any{},
			RetryCount:        0,
			MaxRetryCount:     3,
			AckTimeoutSeconds: 60,
		},
		{
			ID:                "1700000001.8812345",
			CallableIdent:     "q2:echo",
			Args:              []any{"hi"},
			Kwargs:            map[string]any{"loud": true},
			RetryCount:        2,
			MaxRetryCount:     2,
			AckTimeoutSeconds: 30,
			StartTime:         1700000050,
		},
	}

	for _, want := range cases {
		data, err := DefaultSerialize(want)
		if err != nil {
			t.Fatalf("serialize: %v", err)
		}
		got, err := DefaultDeserialize(data)
		if err != nil {
			t.Fatalf("deserialize: %v", err)
		}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
		}
	}
}

func TestMarshalUsesHistoricalFieldNames(t *testing.T) {
	e := &Envelope{ID: "abc", CallableIdent: "q:task", Args: []any{1}, Kwargs: map[string]any{"x": 1}}
	data, err := DefaultSerialize(e)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	s := string(data)
	if !contains(s, `"callable_func_ident":"q:task"`) {
		t.Fatalf("expected historical field name callable_func_ident in %s", s)
	}
	if !contains(s, `"message":[[1],{"x":1}]`) {
		t.Fatalf("expected message as [args, kwargs] tuple in %s", s)
	}
}

func TestDeserializeMalformedReturnsSerializationError(t *testing.T) {
	_, err := DefaultDeserialize([]byte("not json"))
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestNilArgsAndKwargsNormalizeToEmpty(t *testing.T) {
	e := &Envelope{ID: "x", CallableIdent: "q:t"}
	data, err := DefaultSerialize(e)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := DefaultDeserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.Args == nil || len(got.Args) != 0 {
		t.Fatalf("expected empty non-nil Args, got %#v", got.Args)
	}
	if got.Kwargs == nil || len(got.Kwargs) != 0 {
		t.Fatalf("expected empty non-nil Kwargs, got %#v", got.Kwargs)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
