package main

import (
	"fmt"
	"path/filepath"

	"github.com/joshuapare/digkit/dig/artifact"
	"github.com/joshuapare/digkit/dig/charset"
	"github.com/joshuapare/digkit/dig/examiners/blank"
	"github.com/joshuapare/digkit/dig/examiners/compressed"
	"github.com/joshuapare/digkit/dig/examiners/regf"
	"github.com/joshuapare/digkit/dig/printer"
	"github.com/joshuapare/digkit/dig/source"
	"github.com/joshuapare/digkit/internal/logger"
	"github.com/joshuapare/digkit/internal/mmfile"
	"github.com/joshuapare/digkit/pkg/types"
)

var examinerRegistry = map[string]func() artifact.Examiner{
	"blank":      func() artifact.Examiner { return blank.New() },
	"compressed": func() artifact.Examiner { return compressed.New() },
	"regf":       func() artifact.Examiner { return regf.New() },
}

// buildExaminers instantiates examiners by name, keeping their order.
func buildExaminers(names []string) ([]artifact.Examiner, error) {
	out := make([]artifact.Examiner, 0, len(names))
	for _, name := range names {
		mk, ok := examinerRegistry[name]
		if !ok {
			return nil, fmt.Errorf("unknown examiner %q", name)
		}
		out = append(out, mk())
	}
	return out, nil
}

// excavation is one image run to fixpoint. The image stays mapped until
// Close because every artifact borrows its bytes.
type excavation struct {
	mapping *mmfile.Mapping
	graph   *artifact.Graph
	image   *artifact.Artifact
	stats   artifact.RunStats
}

func excavate(path string) (*excavation, error) {
	m, err := mmfile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	x := &excavation{mapping: m}
	if err := x.run(path); err != nil {
		_ = m.Close()
		return nil, err
	}
	return x, nil
}

func (x *excavation) run(path string) error {
	name := filepath.Base(path)
	if x.mapping.Len() == 0 {
		return fmt.Errorf("%s: %w", name, types.ErrEmptyInput)
	}

	src, err := source.New(x.mapping.Bytes())
	if err != nil {
		return err
	}
	if size := cfg.Excavation.RecordSize; size > 0 {
		if err := src.FixedRecords(size); err != nil {
			return fmt.Errorf("records: %w", err)
		}
	}

	x.graph = artifact.New(cfg.Options(logger.L))
	x.graph.Root().SetLabel(name)
	x.image, err = x.graph.IngestSource(src, artifact.IngestOptions{Description: name})
	if err != nil {
		return err
	}
	table, err := charset.ByName(cfg.Excavation.Charset)
	if err != nil {
		return err
	}
	x.image.SetCharset(table)

	exams, err := buildExaminers(cfg.Examiners)
	if err != nil {
		return err
	}
	logger.Debug("excavating", "image", name, "size", x.mapping.Len(), "mapped", x.mapping.Mapped(),
		"records", len(src.Records()), "examiners", cfg.Examiners)
	x.stats = x.graph.RunToFixpoint(exams...)
	if x.stats.Exhausted {
		logger.Warn("gap passes exhausted before fixpoint", "passes", x.stats.Passes)
	}
	return nil
}

func (x *excavation) Close() error { return x.mapping.Close() }

// printerOptions maps the output configuration onto printer options.
func printerOptions() printer.Options {
	opts := printer.DefaultOptions()
	opts.Format = printer.Format(cfg.Output.Format)
	opts.IndentSize = cfg.Output.Indent
	opts.ShowNotes = cfg.Output.ShowNotes
	opts.ShowDigests = cfg.Output.ShowDigests
	return opts
}
