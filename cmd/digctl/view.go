package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joshuapare/digkit/dig/artifact"
	"github.com/joshuapare/digkit/dig/printer"
	"github.com/joshuapare/digkit/dig/view"
)

var viewArtifact uint32

func init() {
	rootCmd.AddCommand(newViewCmd())
}

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <image>",
		Short: "Show the claimed ranges and gaps of each artifact",
		Long: `The view command excavates an image like excavate does, then renders
every artifact's claimed structures and unexplained gaps in address order.

Example:
  digctl view hive.dat
  digctl view --artifact 3 tape.img`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.OutOrStdout(), args)
		},
	}
	cmd.Flags().Uint32Var(&viewArtifact, "artifact", 0, "Only show the artifact with this id")
	return cmd
}

func runView(w io.Writer, args []string) error {
	x, err := excavate(args[0])
	if err != nil {
		return err
	}
	defer x.Close()

	targets := x.graph.Artifacts()
	if viewArtifact != 0 {
		a, ok := x.graph.Get(artifact.ID(viewArtifact))
		if !ok {
			return fmt.Errorf("no artifact #%d (have %d)", viewArtifact, x.graph.Len())
		}
		targets = []*artifact.Artifact{a}
	}

	p := printer.New(w, printerOptions())
	for i, a := range targets {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := p.PrintView(view.NewOctetView(a)); err != nil {
			return err
		}
	}
	printInfo(w, "\n%s\n", statsLine(x))
	return nil
}
