package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wI2L/jsondiff"

	"github.com/vango-dev/reconciler/internal/errors"
	"github.com/vango-dev/reconciler/pkg/treedoc"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

func applyCmd(a *app) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "apply OLD NEW",
		Short: "Apply the diff of two trees and verify the result",
		Long: `Diff two tree documents, apply the patches to a copy of the old
tree and check that the result equals the new tree. On success the
patched tree is printed as HTML. On mismatch the differences are
printed as an RFC 6902 JSON Patch.

Examples:
  reconcile apply old.yaml new.yaml
  reconcile apply old.yaml new.yaml --pretty`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, a, args[0], args[1], flagBool(cmd, "pretty", pretty))
		},
	}

	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "Indent the HTML output")

	return cmd
}

func runApply(cmd *cobra.Command, a *app, oldPath, newPath string, pretty *bool) error {
	prev, err := loadTree(oldPath)
	if err != nil {
		return err
	}
	next, err := loadTree(newPath)
	if err != nil {
		return err
	}

	patches, err := a.reconciler().Reconcile(cmd.Context(), prev.Arena, prev.ID, next)
	if err != nil {
		return errors.Classify(err).WithFile(oldPath)
	}
	if err := verify(prev, next); err != nil {
		return err
	}

	if err := a.writeHTML(prev, pretty); err != nil {
		return err
	}
	a.success("Applied %d patches, result matches %s", len(patches), newPath)
	return nil
}

// verify checks that got equals want and describes the differences as a
// JSON Patch when it does not.
func verify(got, want vdom.Ref) error {
	if vdom.Equal(got, want) {
		return nil
	}

	ops, err := treedoc.Compare(got, want)
	if err != nil {
		return errors.New("R002").Wrap(err)
	}
	var b strings.Builder
	writeOps(&b, ops)
	return errors.New("R002").WithDetail(strings.TrimSpace(b.String()))
}

// writeOps prints one operation per line: op, JSON pointer and value.
func writeOps(w io.Writer, ops jsondiff.Patch) {
	for _, op := range ops {
		if op.Type == jsondiff.OperationRemove {
			fmt.Fprintf(w, "%s %s\n", op.Type, op.Path)
			continue
		}
		value, err := json.Marshal(op.Value)
		if err != nil {
			value = []byte(fmt.Sprint(op.Value))
		}
		fmt.Fprintf(w, "%s %s %s\n", op.Type, op.Path, value)
	}
}
