package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reconciler/internal/errors"
	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/treedoc"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

func diffCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Print the patches that turn one tree into another",
		Long: `Diff two tree documents and print the patch stream.

Formats:
  text    one patch per line (default)
  json    a JSON array of patches
  binary  a single patches frame in the wire format

Examples:
  reconcile diff old.yaml new.yaml
  reconcile diff old.yaml new.yaml --format json
  reconcile diff old.yaml new.yaml --format binary > patches.bin`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, a, args[0], args[1], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, binary")

	return cmd
}

func runDiff(cmd *cobra.Command, a *app, oldPath, newPath, format string) error {
	if err := checkFormat(format, "text", "json", "binary"); err != nil {
		return err
	}

	prev, err := loadTree(oldPath)
	if err != nil {
		return err
	}
	next, err := loadTree(newPath)
	if err != nil {
		return err
	}

	patches := a.reconciler().Diff(cmd.Context(), prev, next)
	return writePatches(a.out, format, protocol.PatchesFrame{Seq: 1, Patches: patches}, false)
}

// writePatches prints a frame's patches in the given format. snapshot only
// affects the binary format, where it sets the frame's snapshot flag.
func writePatches(w io.Writer, format string, frame protocol.PatchesFrame, snapshot bool) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(patchesJSON(frame.Patches), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "binary":
		return protocol.WritePatchesFrame(w, &frame, snapshot)
	default:
		for _, p := range frame.Patches {
			if _, err := fmt.Fprintln(w, p.String()); err != nil {
				return err
			}
		}
		return nil
	}
}

// patchJSON is the JSON shape of a patch. Null map values are deletions.
type patchJSON struct {
	Op    string             `json:"op"`
	Path  string             `json:"path"`
	Node  *treedoc.Doc       `json:"node,omitempty"`
	Attrs map[string]*string `json:"attrs,omitempty"`
	On    map[string]*string `json:"on,omitempty"`
	State *stateJSON         `json:"state,omitempty"`
}

type stateJSON struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func patchesJSON(patches []vdom.Patch) []patchJSON {
	out := make([]patchJSON, 0, len(patches))
	for _, p := range patches {
		pj := patchJSON{Op: p.Op.String(), Path: p.Path.String()}
		switch p.Op {
		case vdom.PatchReplace, vdom.PatchAdd:
			pj.Node = treedoc.Export(p.Node)
		case vdom.PatchUpdateAttributes:
			pj.Attrs = deltasJSON(p.Attrs)
		case vdom.PatchUpdateEventHandlers:
			pj.On = make(map[string]*string, len(p.Handlers))
			for event, d := range p.Handlers {
				if d.Deleted {
					pj.On[event] = nil
					continue
				}
				key := string(d.Value)
				pj.On[event] = &key
			}
		case vdom.PatchUpdateState:
			pj.State = &stateJSON{Key: p.Key, Value: p.Value.Any()}
		}
		out = append(out, pj)
	}
	return out
}

func deltasJSON(deltas map[string]vdom.Delta[string]) map[string]*string {
	out := make(map[string]*string, len(deltas))
	for k, d := range deltas {
		if d.Deleted {
			out[k] = nil
			continue
		}
		v := d.Value
		out[k] = &v
	}
	return out
}

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return errors.New("R051").
		WithDetail(fmt.Sprintf("--format is %q", format)).
		WithSuggestion(fmt.Sprintf("Use one of %v", allowed))
}
