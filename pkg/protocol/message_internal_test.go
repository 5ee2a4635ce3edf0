package protocol

import (
	"encoding/json"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    *structpb.Value
		want bool
	}{
		{"null", structpb.NewNullValue(), false},
		{"false", structpb.NewBoolValue(false), false},
		{"true", structpb.NewBoolValue(true), true},
		{"zero", structpb.NewNumberValue(0), false},
		{"number", structpb.NewNumberValue(3), true},
		{"empty string", structpb.NewStringValue(""), false},
		{"blank string", structpb.NewStringValue("  "), false},
		{"string", structpb.NewStringValue("boom"), true},
		{"empty list", structpb.NewListValue(&structpb.ListValue{}), false},
		{"empty struct", structpb.NewStructValue(&structpb.Struct{}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truthy(tt.v); got != tt.want {
				t.Errorf("truthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msgType string
		want    Kind
	}{
		{"join", KindJoin},
		{"HANDSHAKE", KindJoin},
		{"quit", KindQuit},
		{"leave", KindQuit},
		{"SYSTEM", KindSystem},
		{"message", KindText},
		{"AGENT_MESSAGE", KindText},
		{"", KindText},
	}

	for _, tt := range tests {
		t.Run(tt.msgType, func(t *testing.T) {
			if got := classify(tt.msgType); got != tt.want {
				t.Errorf("classify(%q) = %v, want %v", tt.msgType, got, tt.want)
			}
		})
	}
}

func TestDecode_NonStringError(t *testing.T) {
	got := Decode([]byte(`{"error":{"code":429}}`))
	if got.Kind != KindError {
		t.Fatalf("Kind = %v, want %v", got.Kind, KindError)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(got.Body), &parsed); err != nil {
		t.Fatalf("Body %q is not JSON: %v", got.Body, err)
	}
	if parsed["code"] != float64(429) {
		t.Errorf("Body code = %v, want 429", parsed["code"])
	}
}
