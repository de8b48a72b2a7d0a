package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joshuapare/digkit/dig/printer"
)

var (
	excavateFormat string
	excavateDepth  int
)

func init() {
	rootCmd.AddCommand(newExcavateCmd())
}

func newExcavateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "excavate <image>",
		Short: "Run the examiners over an image and print the artifact tree",
		Long: `The excavate command maps an image, offers it and everything carved from
it to the configured examiners until nothing new appears, and prints the
resulting artifact tree.

Example:
  digctl excavate disk.img
  digctl excavate --records 512 --format json disk.img`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExcavate(cmd.OutOrStdout(), args)
		},
	}
	cmd.Flags().StringVar(&excavateFormat, "format", "", "Output format: text or json (default from config)")
	cmd.Flags().IntVar(&excavateDepth, "depth", 0, "Maximum tree depth (0 = unlimited)")
	return cmd
}

func runExcavate(w io.Writer, args []string) error {
	x, err := excavate(args[0])
	if err != nil {
		return err
	}
	defer x.Close()

	opts := printerOptions()
	opts.MaxDepth = excavateDepth
	if excavateFormat != "" {
		f, err := printer.ParseFormat(excavateFormat)
		if err != nil {
			return err
		}
		opts.Format = f
	}
	if err := printer.New(w, opts).PrintGraph(x.graph); err != nil {
		return err
	}
	if opts.Format == printer.FormatText {
		printInfo(w, "\n%s\n", x.stats)
	}
	return nil
}

// statsLine formats run statistics for the view command footer.
func statsLine(x *excavation) string {
	return fmt.Sprintf("%d artifacts; %s", x.graph.Len(), x.stats)
}
