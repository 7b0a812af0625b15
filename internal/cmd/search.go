package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/taller/internal/order"
	"github.com/runger/taller/internal/typeahead"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:     "search <field> <query>",
	Short:   "Resolve one query the way the form would",
	GroupID: groupForm,
	Long: `Resolve a query for one field once and print the results as the form
would list them, using the configured search mode.

Examples:
  taller search technician ana
  taller search product "filtro de" --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the matching records as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	field, ok := order.ParseField(args[0])
	if !ok {
		return fmt.Errorf("unknown field %q (want technician, client, vehicle or product)", args[0])
	}
	query := strings.ToLower(strings.Join(args[1:], " "))

	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.close("search finished")

	mode, err := typeahead.ParseMode(s.cfg.Search.Mode)
	if err != nil {
		return err
	}
	datasets, err := s.datasets(cmd.Context())
	if err != nil {
		return err
	}
	dataset, ok := datasets[field]
	if !ok {
		dataset = order.Seed(field)
	}
	endpoint := s.cfg.Search.Endpoints.For(string(field))
	if s.cfg.Remote() && endpoint == "" {
		return fmt.Errorf("no endpoint configured for %s (set search.endpoints.%s)", field, field)
	}

	timeout := s.cfg.Search.Timeout()
	if timeout <= 0 {
		timeout = typeahead.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	provider := typeahead.NewProvider(mode, endpoint, dataset, nil, s.logger)
	results, err := provider.Search(ctx, query)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		if results == nil {
			results = []typeahead.Candidate{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, typeahead.NoResultsText)
		return nil
	}
	renderer := field.Renderer()
	for i, c := range results {
		fmt.Fprintf(out, "[%d] %s\n", i, renderer.Render(c))
	}
	return nil
}
