package realtime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodeFrameClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want frameKind
	}{
		{name: "join", in: `{"roomId":"general","displayName":"alice"}`, want: frameJoin},
		{name: "join without name", in: `{"roomId":"general"}`, want: frameJoin},
		{name: "send", in: `{"content":"hi"}`, want: frameSend},
		{name: "send empty content key", in: `{"content":""}`, want: frameSend},
		{name: "ping", in: `{"event":"ping"}`, want: framePing},
		{name: "unknown event", in: `{"event":"dance"}`, want: frameUnknown},
		{name: "empty object", in: `{}`, want: frameUnknown},
		{name: "foreign keys", in: `{"type":"hello"}`, want: frameUnknown},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, kind, err := decodeFrame([]byte(tc.in))
			if err != nil {
				t.Fatalf("decodeFrame(%q) err=%v", tc.in, err)
			}
			if kind != tc.want {
				t.Fatalf("decodeFrame(%q) kind=%v want=%v", tc.in, kind, tc.want)
			}
		})
	}
}

func TestDecodeFrameBadJSON(t *testing.T) {
	t.Parallel()

	_, kind, err := decodeFrame([]byte(`{"roomId":`))
	if err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if kind != frameUnknown {
		t.Fatalf("kind=%v want=%v", kind, frameUnknown)
	}
}

func TestErrorMessageShape(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1700000000000).UTC()
	b, err := json.Marshal(errorMessage("you must join a room first", now))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got["username"] != SystemUsername {
		t.Fatalf("username=%v want=%v", got["username"], SystemUsername)
	}
	if got["content"] != "you must join a room first" {
		t.Fatalf("content=%v", got["content"])
	}
	if _, ok := got["id"]; ok {
		t.Fatal("error shape must not carry an id")
	}
	if _, ok := got["roomId"]; ok {
		t.Fatal("error shape must not carry a roomId")
	}
}

func TestSystemMessageCarriesUsers(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	m := systemMessage("general", "alice joined the room", []string{"alice", "bob"}, now)

	if m.RoomID != "general" || m.Username != SystemUsername {
		t.Fatalf("unexpected message: %+v", m)
	}
	if len(m.Users) != 2 {
		t.Fatalf("users=%v", m.Users)
	}
	if m.TimestampMillis != now.UnixMilli() {
		t.Fatalf("ts=%d want=%d", m.TimestampMillis, now.UnixMilli())
	}
}
