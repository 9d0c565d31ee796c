// Package protocol implements the binary wire format for patch streams.
//
// A reconciliation cycle produces a list of vdom.Patch values. This package
// encodes such a list, together with a sequence number, into a compact byte
// form that a display layer can consume, and decodes it back.
//
// # Encoding
//
//   - Varint: unsigned integers (counts, indices, sequence numbers)
//   - ZigZag varint: signed integers (state values)
//   - Length-prefixed: strings
//   - Big-endian: float64 bits
//
// # Patches Frame
//
//	[Seq: varint][Count: varint][Patch]*
//
// Each patch is
//
//	[Op: 1 byte][Path: varint count + varint indices][payload]
//
// where the payload depends on the op: a node for Replace and Add, nothing
// for Remove, key/delta pairs for the Update ops.
//
// # Nodes
//
//	Element:   [0x00][Tag][Attrs][Handlers][Children]
//	Text:      [0x01][Text]
//	Fragment:  [0x02][Children]
//	Component: [0x03][Name][Render][Props][State]
//
// Decoding materializes node payloads into a fresh vdom.Arena; the decoded
// patches reference it.
//
// # Framing
//
// WriteFrame and ReadFrame wrap an encoded payload in a 6-byte header (type
// byte, flags byte, big-endian uint32 length) for streaming over an
// io.Writer. A patches frame flagged FlagSnapshot replaces the whole tree, so
// a reader can join a stream at any snapshot:
//
//	for {
//	    pf, snapshot, err := protocol.ReadPatchesFrame(r)
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package protocol
