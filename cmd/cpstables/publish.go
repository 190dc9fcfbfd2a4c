package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cpstables/internal/pipeline"
	"cpstables/internal/plan"
	"cpstables/pkg/domain"
)

type publishOptions struct {
	planPath  string
	name      string
	suppress  bool
	threshold int64
	from      int
	to        int
	minAge    int
	runID     string
}

func newPublishCmd(a *app) *cobra.Command {
	var opts publishOptions
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Build a published table from stored microdata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublish(cmd, a, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.planPath, "plan", "", "Aggregation plan document (required)")
	f.StringVar(&opts.name, "name", "", "Table name (required)")
	f.BoolVar(&opts.suppress, "suppress", true, "Null estimates resting on too few observations")
	f.Int64Var(&opts.threshold, "threshold", 0, "Suppression threshold (default from configuration)")
	f.IntVar(&opts.from, "from", 0, "First month key, YYYYMM")
	f.IntVar(&opts.to, "to", 0, "Last month key, YYYYMM")
	f.IntVar(&opts.minAge, "min-age", 0, "Age threshold of the second base population")
	f.StringVar(&opts.runID, "run-id", "", "Run ID (default: a new time-ordered ID)")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func runPublish(cmd *cobra.Command, a *app, opts publishOptions) error {
	ctx := cmd.Context()
	plans, err := plan.Load(opts.planPath)
	if err != nil {
		return err
	}
	req := pipeline.PublishRequest{
		Name:      opts.name,
		Plans:     plans,
		Filter:    domain.MicrodataFilter{FromMonth: opts.from, ToMonth: opts.to},
		Suppress:  a.cfg.Suppress,
		Threshold: a.cfg.Threshold,
		MinAge:    opts.minAge,
		RunID:     opts.runID,
	}
	if cmd.Flags().Changed("suppress") {
		req.Suppress = opts.suppress
	}
	if cmd.Flags().Changed("threshold") {
		req.Threshold = opts.threshold
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	pub, err := a.openPublisher(ctx)
	if err != nil {
		return err
	}

	res, err := a.pipeline(store, pipeline.WithPublisher(pub)).Publish(ctx, req)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, p := range plans {
		_, _ = fmt.Fprintf(w, "%s\t%d rows\n", p.Name, res.PlanRows[p.Name])
	}
	_, _ = fmt.Fprintf(w, "table %s\t%d rows from %d observations\n", opts.name, len(res.Rows), res.Observations)
	if req.Suppress {
		_, _ = fmt.Fprintf(w, "suppressed\t%d population, %d earnings\n", res.Disclosure.Population, res.Disclosure.Earnings)
	}
	if res.Run != nil {
		_, _ = fmt.Fprintf(w, "run\t%s\n", res.Run.ID)
	}
	return w.Flush()
}
