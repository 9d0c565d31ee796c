package protocol

import (
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// EncodeEvent encodes an event addressed to the node at ev.Path.
//
//	[Type: string][Path][Value: string]
func EncodeEvent(ev vdom.Event) []byte {
	e := NewEncoder()
	e.WriteString(ev.Type)
	e.WritePath(ev.Path)
	e.WriteString(ev.Value)
	return e.Bytes()
}

// DecodeEvent decodes an event payload.
func DecodeEvent(data []byte) (vdom.Event, error) {
	var ev vdom.Event
	d := NewDecoder(data)

	var err error
	if ev.Type, err = d.ReadString(); err != nil {
		return ev, err
	}
	if ev.Path, err = d.ReadPath(); err != nil {
		return ev, err
	}
	if ev.Value, err = d.ReadString(); err != nil {
		return ev, err
	}
	if !d.EOF() {
		return ev, ErrTrailingBytes
	}
	return ev, nil
}
