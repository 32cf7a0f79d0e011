package protocol

import "strings"

// SSEEvent is one parsed Server-Sent Event.
type SSEEvent struct {
	Event string // empty when the event carried no "event:" line
	Data  string
}

// SSEParser incrementally decodes a byte stream into SSEEvents. Feed it
// chunks as they arrive over the wire with Push; call Finish once the
// stream ends to flush any trailing, unterminated event.
type SSEParser struct {
	buffer    strings.Builder // partial line not yet terminated by \n
	event     string
	dataLines []string
	hasEvent  bool
}

// NewSSEParser returns a ready-to-use parser.
func NewSSEParser() *SSEParser {
	return &SSEParser{}
}

// Push feeds raw bytes and returns any events completed by them, in order.
func (p *SSEParser) Push(chunk []byte) []SSEEvent {
	return p.PushString(string(chunk))
}

// PushString is the string equivalent of Push.
func (p *SSEParser) PushString(chunk string) []SSEEvent {
	var out []SSEEvent
	for len(chunk) > 0 {
		idx := strings.IndexByte(chunk, '\n')
		if idx < 0 {
			p.buffer.WriteString(chunk)
			break
		}
		line := p.buffer.String() + chunk[:idx]
		p.buffer.Reset()
		chunk = chunk[idx+1:]

		line = strings.TrimSuffix(line, "\r")
		if ev, ok := p.feedLine(line); ok {
			out = append(out, ev)
		}
	}
	return out
}

// Finish flushes any buffered partial line and emits a trailing event if one
// is pending. Call exactly once, after the underlying stream has ended.
func (p *SSEParser) Finish() []SSEEvent {
	var out []SSEEvent
	if p.buffer.Len() > 0 {
		line := strings.TrimSuffix(p.buffer.String(), "\r")
		p.buffer.Reset()
		if ev, ok := p.feedLine(line); ok {
			out = append(out, ev)
		}
	}
	if ev, ok := p.finishEvent(); ok {
		out = append(out, ev)
	}
	return out
}

// feedLine processes one complete (unterminated) line and returns a
// completed event if the line was a blank "dispatch" line.
func (p *SSEParser) feedLine(line string) (SSEEvent, bool) {
	switch {
	case line == "":
		return p.finishEvent()
	case strings.HasPrefix(line, ":"):
		// comment, ignored
	case line == "event":
		p.event = ""
		p.hasEvent = false
	case strings.HasPrefix(line, "event:"):
		v := strings.TrimPrefix(line, "event:")
		v = strings.TrimPrefix(v, " ")
		p.event = v
		p.hasEvent = v != ""
	case line == "data":
		p.dataLines = append(p.dataLines, "")
	case strings.HasPrefix(line, "data:"):
		v := strings.TrimPrefix(line, "data:")
		v = strings.TrimPrefix(v, " ")
		p.dataLines = append(p.dataLines, v)
	default:
		// unknown field, ignored
	}
	return SSEEvent{}, false
}

func (p *SSEParser) finishEvent() (SSEEvent, bool) {
	hasEvent := p.hasEvent
	ev := p.event
	data := p.dataLines

	p.event = ""
	p.hasEvent = false
	p.dataLines = nil

	if !hasEvent && len(data) == 0 {
		return SSEEvent{}, false
	}

	out := SSEEvent{Data: strings.Join(data, "\n")}
	if hasEvent {
		out.Event = ev
	}
	return out, true
}

// EncodeSSE renders an event back to wire form, terminated by a blank line.
func EncodeSSE(ev SSEEvent) string {
	var b strings.Builder
	if ev.Event != "" {
		b.WriteString("event: ")
		b.WriteString(ev.Event)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}
