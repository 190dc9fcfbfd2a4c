package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cpstables/internal/pipeline"
	"cpstables/internal/recode"
)

type compileOptions struct {
	year             int
	layout           string
	layoutDir        string
	dataDir          string
	supplementLayout string
	supplementData   string
	labels           string
}

func newCompileCmd(a *app) *cobra.Command {
	var opts compileOptions
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Decode, recode and persist one survey year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompile(cmd, a, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.year, "year", 0, "Survey year (required)")
	f.StringVar(&opts.layout, "layout", "", "Record layout file (default: the year's layout inside --layout-dir)")
	f.StringVar(&opts.layoutDir, "layout-dir", ".", "Directory holding record layout files")
	f.StringVar(&opts.dataDir, "data-dir", ".", "Directory holding the monthly files")
	f.StringVar(&opts.supplementLayout, "supplement-layout", "", "Certification extract layout")
	f.StringVar(&opts.supplementData, "supplement-data", "", "Certification extract data file")
	f.StringVar(&opts.labels, "labels", "", "Value-label table (YAML or JSON)")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func runCompile(cmd *cobra.Command, a *app, opts compileOptions) error {
	ctx := cmd.Context()
	in := pipeline.YearInput{
		Year:             opts.year,
		Layout:           opts.layout,
		LayoutDir:        opts.layoutDir,
		DataDir:          opts.dataDir,
		SupplementLayout: opts.supplementLayout,
		SupplementData:   opts.supplementData,
	}
	if opts.labels != "" {
		labels, err := recode.LoadLabels(opts.labels)
		if err != nil {
			return err
		}
		in.Labels = labels
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	res, err := a.pipeline(store).Compile(ctx, in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.stdout, "year %d: %d fields, %d decoded, %d dropped, %d kept, %d filtered, skipped months %v\n",
		res.Year, res.Fields, res.Decode.Decoded, res.Decode.Dropped, res.Recode.Kept, res.Recode.Filtered, res.Skipped())
	return err
}
