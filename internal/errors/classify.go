package errors

import (
	stderrors "errors"
	"io/fs"

	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/render"
	"github.com/vango-dev/reconciler/pkg/treedoc"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// classes maps library sentinels to error codes. Order matters: the first
// match wins.
var classes = []struct {
	err  error
	code string
}{
	{vdom.ErrInvalidPatchTarget, "R001"},
	{vdom.ErrInvalidPatch, "R003"},
	{treedoc.ErrUnknownShape, "R011"},
	{treedoc.ErrUnsupportedValue, "R012"},
	{treedoc.ErrInvalidDocument, "R010"},
	{protocol.ErrUnknownOp, "R030"},
	{protocol.ErrUnknownKind, "R030"},
	{protocol.ErrUnknownValueKind, "R030"},
	{protocol.ErrTooDeep, "R030"},
	{protocol.ErrTrailingBytes, "R030"},
	{protocol.ErrVarintOverflow, "R030"},
	{protocol.ErrAllocationTooLarge, "R030"},
	{protocol.ErrCollectionTooLarge, "R030"},
	{protocol.ErrFrameTooLarge, "R030"},
	{protocol.ErrInvalidFrameType, "R030"},
	{vdom.ErrHandlerNotFound, "R040"},
	{vdom.ErrRenderNotFound, "R041"},
	{render.ErrComponentDepth, "R042"},
	{fs.ErrNotExist, "R050"},
	{fs.ErrPermission, "R050"},
}

// Classify converts a library error into a coded Error. Errors that are
// already coded are returned as-is; unknown errors get no code. Document
// errors carry their line and column into Location.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded
	}

	e := &Error{Category: CategoryCLI, Message: "Command failed", Wrapped: err}
	for _, c := range classes {
		if stderrors.Is(err, c.err) {
			e = New(c.code).Wrap(err)
			break
		}
	}

	var docErr *treedoc.Error
	if stderrors.As(err, &docErr) && docErr.Line > 0 {
		e.Location = &Location{Line: docErr.Line, Column: docErr.Column}
	}
	return e
}
