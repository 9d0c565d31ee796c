package main

import (
	"github.com/spf13/cobra"
)

func renderCmd(a *app) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a tree document as HTML",
		Long: `Render a tree document as HTML.

Components render as placeholder comments. Event handlers render as
data-on-<event> attributes holding the handler key.

Examples:
  reconcile render page.yaml
  reconcile render page.yaml --pretty`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := loadTree(args[0])
			if err != nil {
				return err
			}
			return a.writeHTML(tree, flagBool(cmd, "pretty", pretty))
		},
	}

	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "Indent the HTML output (default from reconcile.yaml)")

	return cmd
}
