package protocol

import (
	"reflect"
	"testing"
)

func TestSSEParserRoundTrip(t *testing.T) {
	events := []SSEEvent{
		{Event: "message_start", Data: `{"type":"start"}`},
		{Data: `{"delta":"hi"}`},
		{Event: "message_stop", Data: "line1\nline2"},
	}

	var wire string
	for _, ev := range events {
		wire += EncodeSSE(ev)
	}

	p := NewSSEParser()
	got := p.Push([]byte(wire))
	got = append(got, p.Finish()...)

	if !reflect.DeepEqual(got, events) {
		t.Fatalf("round trip mismatch:\n got  %#v\n want %#v", got, events)
	}
}

func TestSSEParserChunked(t *testing.T) {
	wire := "event: a\ndata: hello\n\ndata: world\n\n"
	p := NewSSEParser()

	var got []SSEEvent
	for i := 0; i < len(wire); i++ {
		got = append(got, p.Push([]byte{wire[i]})...)
	}
	got = append(got, p.Finish()...)

	want := []SSEEvent{
		{Event: "a", Data: "hello"},
		{Data: "world"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("chunked parse mismatch:\n got  %#v\n want %#v", got, want)
	}
}

func TestSSEParserCommentsAndBareFields(t *testing.T) {
	wire := ": this is a comment\nevent\ndata\ndata: x\n\n"
	p := NewSSEParser()
	got := p.Push([]byte(wire))
	got = append(got, p.Finish()...)

	want := []SSEEvent{{Data: "\nx"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSSEParserTrailingPartialFlushedOnFinish(t *testing.T) {
	p := NewSSEParser()
	got := p.Push([]byte("event: a\ndata: partial"))
	if len(got) != 0 {
		t.Fatalf("expected no events before Finish, got %#v", got)
	}
	got = p.Finish()
	want := []SSEEvent{{Event: "a", Data: "partial"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSSEParserEmptyEventNotEmitted(t *testing.T) {
	p := NewSSEParser()
	got := p.Push([]byte("\n\n"))
	got = append(got, p.Finish()...)
	if len(got) != 0 {
		t.Fatalf("expected no events, got %#v", got)
	}
}
