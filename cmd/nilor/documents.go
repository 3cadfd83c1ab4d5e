package main

import (
	"fmt"
	"os"

	"nilor/internal/codec"
	"nilor/internal/domain"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that a graph document loads",
		Long: `Parses FILE as a graph document and checks every edge against the nodes
and ports it names. The format comes from the file extension unless
--format is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0], format)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d nodes, %d edges)\n", args[0], len(snap.Nodes), len(snap.Edges))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Input format: json or yaml")

	return cmd
}

func newConvertCommand() *cobra.Command {
	var (
		from   string
		to     string
		output string
	)

	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Convert a graph document to another format",
		Long: `Reads FILE and writes it as json, yaml or svg. The document is validated
first, so a converted file always loads.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0], from)
			if err != nil {
				return err
			}
			exporter, err := codec.NewExporter(to)
			if err != nil {
				return err
			}

			doc := codec.Serialize(snap)
			if output == "" || output == "-" {
				return exporter.Export(doc, cmd.OutOrStdout())
			}
			return exportToFile(exporter, doc, output)
		},
	}

	cmd.Flags().StringVarP(&from, "format", "f", "", "Input format: json or yaml")
	cmd.Flags().StringVarP(&to, "to", "t", "", "Output format: json, yaml or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// exportToFile writes doc to path. A failed close is reported like a failed
// write.
func exportToFile(exporter codec.Exporter, doc *codec.Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := exporter.Export(doc, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// readSnapshot parses and deserializes a document file. An empty format is
// taken from the file extension.
func readSnapshot(path, format string) (domain.Snapshot, error) {
	if format == "" {
		format = codec.FormatFromPath(path)
	}
	importer, err := codec.NewImporter(format)
	if err != nil {
		return domain.Snapshot{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer f.Close()

	doc, err := importer.Parse(f)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	snap, err := codec.Deserialize(doc)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}
