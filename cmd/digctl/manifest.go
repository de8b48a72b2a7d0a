package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/digkit/dig/printer"
)

var (
	manifestFormat string
	manifestOutput string
)

func init() {
	rootCmd.AddCommand(newManifestCmd())
}

func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest <image>",
		Short: "Write a machine-readable manifest of an excavation",
		Long: `The manifest command excavates an image and writes every artifact's
digest, size, parents, carved ranges, tags and notes as JSON or as
deterministic CBOR.

Example:
  digctl manifest disk.img
  digctl manifest --format cbor -o disk.cbor disk.img`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifest(cmd.OutOrStdout(), args)
		},
	}
	cmd.Flags().StringVar(&manifestFormat, "format", "json", "Output format: json or cbor")
	cmd.Flags().StringVarP(&manifestOutput, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func runManifest(w io.Writer, args []string) (err error) {
	format, err := printer.ParseFormat(manifestFormat)
	if err != nil {
		return err
	}
	if format == printer.FormatText {
		return fmt.Errorf("manifest format must be json or cbor")
	}

	x, err := excavate(args[0])
	if err != nil {
		return err
	}
	defer x.Close()

	if manifestOutput != "" {
		f, cerr := os.Create(manifestOutput)
		if cerr != nil {
			return fmt.Errorf("failed to create output: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	m := printer.BuildManifest(x.graph)
	if format == printer.FormatCBOR {
		return printer.WriteCBOR(w, m)
	}
	return printer.WriteJSON(w, m)
}
