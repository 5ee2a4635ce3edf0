package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// Decode normalizes one inbound frame. Both dialects are accepted: sender
// comes from "name" or "sender", body from "message" or "content".
// Frames that are not JSON objects, liveness pings, and envelopes with
// nothing to show decode to KindIgnore. Decode never fails.
//
// Parsing follows plain JSON rules: the last of duplicate keys wins and
// lone surrogate escapes become U+FFFD.
func Decode(data []byte) Inbound {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Inbound{Kind: KindIgnore}
	}
	s, err := structpb.NewStruct(raw)
	if err != nil {
		return Inbound{Kind: KindIgnore}
	}
	return normalize(s.GetFields())
}

func normalize(fields map[string]*structpb.Value) Inbound {
	if errVal, ok := fields["error"]; ok && truthy(errVal) {
		body := text(errVal)
		if body == "" {
			if raw, err := errVal.MarshalJSON(); err == nil {
				body = string(raw)
			}
		}
		return Inbound{Kind: KindError, Sender: SystemSender, Body: body}
	}

	msgType := firstString(fields, "type")
	sender := firstString(fields, "name", "sender")
	body := firstString(fields, "message", "content")

	if msgType == "" && body == "" {
		// Covers {ready: true} as well as empty objects.
		return Inbound{Kind: KindIgnore}
	}
	if sender == "" {
		sender = UnknownSender
	}

	switch classify(msgType) {
	case KindJoin:
		return Inbound{Kind: KindJoin, Sender: SystemSender, Body: sender + " joined", Subject: sender}
	case KindQuit:
		return Inbound{Kind: KindQuit, Sender: SystemSender, Body: sender + " left", Subject: sender}
	case KindSystem:
		if body == "" {
			return Inbound{Kind: KindIgnore}
		}
		return Inbound{Kind: KindSystem, Sender: sender, Body: body}
	default:
		if body == "" {
			return Inbound{Kind: KindIgnore}
		}
		return Inbound{Kind: KindText, Sender: sender, Body: body}
	}
}

// classify maps a wire type tag onto a Kind. Unrecognized tags are treated
// as chat text so that relays with their own tags still render.
func classify(msgType string) Kind {
	switch msgType {
	case typeJoin, typeHandshake:
		return KindJoin
	case "quit", "leave":
		return KindQuit
	case "SYSTEM", "system":
		return KindSystem
	default:
		return KindText
	}
}

// firstString returns the first non-empty string value among keys.
func firstString(fields map[string]*structpb.Value, keys ...string) string {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok {
			continue
		}
		if s := text(v); s != "" {
			return s
		}
	}
	return ""
}

// text renders a scalar value as a string. Non-scalar values yield "".
func text(v *structpb.Value) string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return fmt.Sprint(k.NumberValue)
	case *structpb.Value_BoolValue:
		return fmt.Sprint(k.BoolValue)
	default:
		return ""
	}
}

// truthy follows JSON truthiness: null, false, 0, "" and empty containers are false.
func truthy(v *structpb.Value) bool {
	switch k := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return k.BoolValue
	case *structpb.Value_NumberValue:
		return k.NumberValue != 0
	case *structpb.Value_StringValue:
		return strings.TrimSpace(k.StringValue) != ""
	case *structpb.Value_StructValue:
		return len(k.StructValue.GetFields()) > 0
	case *structpb.Value_ListValue:
		return len(k.ListValue.GetValues()) > 0
	default:
		return false
	}
}
