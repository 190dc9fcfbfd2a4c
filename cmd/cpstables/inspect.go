package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cpstables/internal/layout"
)

func newRunsCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the published runs of a table, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, err := a.openPublisher(cmd.Context())
			if err != nil {
				return err
			}
			runs, err := pub.Runs(cmd.Context(), name)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "RUN\tCREATED\tROWS\tSUPPRESSED\tTHRESHOLD")
			for _, r := range runs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Rows, r.Suppressed, r.Threshold)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Table name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newFieldsCmd(a *app) *cobra.Command {
	var (
		path   string
		fields []string
	)
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Print the fields parsed from a record layout",
		RunE: func(_ *cobra.Command, _ []string) error {
			var keep layout.Selector
			if len(fields) > 0 {
				keep = layout.Only(fields...)
			}
			l, err := layout.ParseFile(path, keep)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tSTART\tEND\tWIDTH")
			for _, f := range l.Fields {
				_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", f.Name, f.Start+1, f.End, f.Width())
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&path, "layout", "", "Record layout file (required)")
	cmd.Flags().StringSliceVar(&fields, "field", nil, "Only print these fields")
	_ = cmd.MarkFlagRequired("layout")
	return cmd
}
