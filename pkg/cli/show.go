package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gcalmettes/ctfsink/pkg/cli/internal/output"
	"github.com/gcalmettes/ctfsink/pkg/dashboard"
	"github.com/gcalmettes/ctfsink/pkg/keycodec"
	"github.com/gcalmettes/ctfsink/pkg/store"
)

var showCmd = &cobra.Command{
	Use:   "show <key|filename>",
	Short: "Show one captured request",
	Long: `Show the headers, cookies, query parameters and body of one captured
request. The request is addressed by its dashboard key or by its filename
in the requests folder, as printed by 'ctfsink list'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ref := args[0]
		detail := a.store.ReadName(cmd.Context(), ref)
		key := keycodec.Opaque(ref)
		if !detail.Found {
			detail = a.store.Read(cmd.Context(), ref)
			key = ref
		}
		if !detail.Found {
			return fmt.Errorf("request %q not found in %s", ref, a.store.Dir())
		}

		if jsonOutput {
			return output.JSON(cmd.OutOrStdout(), detail)
		}
		printDetail(cmd.OutOrStdout(), detail, dashboard.SectionsOf(key, detail))
		return nil
	},
}

func printDetail(w io.Writer, d store.Detail, s dashboard.Sections) {
	fmt.Fprintf(w, "Name: %s\n", d.Name)
	if d.URI != "" {
		fmt.Fprintf(w, "URI:  %s\n", d.URI)
	}
	fmt.Fprintf(w, "Key:  %s\n", s.Key)

	for _, sec := range []struct{ title, content string }{
		{"Headers", s.Headers},
		{"Cookies", s.Cookies},
		{"Query parameters", s.QueryParams},
		{"Body", s.Body},
	} {
		fmt.Fprintf(w, "\n%s\n%s\n", sec.title, strings.Repeat("-", len(sec.title)))
		if sec.content == "" {
			fmt.Fprintln(w, "(none)")
			continue
		}
		fmt.Fprint(w, sec.content)
		if !strings.HasSuffix(sec.content, "\n") {
			fmt.Fprintln(w)
		}
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}
