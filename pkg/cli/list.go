package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gcalmettes/ctfsink/pkg/cli/internal/output"
	"github.com/gcalmettes/ctfsink/pkg/dashboard"
	"github.com/gcalmettes/ctfsink/pkg/record"
	"github.com/gcalmettes/ctfsink/pkg/store"
)

var (
	listMethod string
	listPath   string
	listSince  string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List captured requests, newest first",
	Example: `  # Every captured request
  ctfsink list

  # The last 5 POST requests under /api
  ctfsink list --method POST --path '/api/**' --limit 5

  # As JSON
  ctfsink list --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := store.Filter{Method: listMethod, PathGlob: listPath, Limit: listLimit}
		if listSince != "" {
			since, err := time.Parse(time.RFC3339, listSince)
			if err != nil {
				return fmt.Errorf("invalid --since %q: expected RFC 3339, e.g. 2024-03-01T12:00:00Z", listSince)
			}
			filter.Since = since
		}
		if err := filter.Validate(); err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		all, err := a.store.All(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list requests: %w", err)
		}
		records := store.Select(store.Newest(all), filter)
		out := cmd.OutOrStdout()

		if jsonOutput {
			resp := dashboard.ListResponse{
				Requests: make([]dashboard.RequestSummary, 0, len(records)),
				Count:    len(records),
				Total:    len(all),
			}
			for _, r := range records {
				resp.Requests = append(resp.Requests, dashboard.SummaryOf(r))
			}
			return output.JSON(out, resp)
		}

		if len(records) == 0 {
			output.NoResults(out, "No request captured yet.")
			return nil
		}

		t := output.Table(out, "Date", "Time", "Method", "Path", "Name")
		for _, r := range records {
			t.AppendRow([]any{r.Date(), r.Clock(), r.Method, record.Truncate(dashboard.ListedPath(cmd.Context(), a.store, r), dashboard.DisplayPathLen), r.Name()})
		}
		t.Render()
		fmt.Fprintf(out, "%d of %d requests\n", len(records), len(all))
		return nil
	},
}

func init() {
	fs := listCmd.Flags()
	fs.StringVarP(&listMethod, "method", "m", "", "Filter by HTTP method")
	fs.StringVarP(&listPath, "path", "p", "", "Filter by path glob (e.g. '/api/**')")
	fs.StringVar(&listSince, "since", "", "Only requests captured at or after this RFC 3339 time")
	fs.IntVarP(&listLimit, "limit", "n", 0, "Maximum number of requests to show (0 for all)")
	rootCmd.AddCommand(listCmd)
}
