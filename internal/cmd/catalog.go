package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/taller/internal/catalog"
	"github.com/runger/taller/internal/order"
	"github.com/runger/taller/internal/typeahead"
)

var catalogCmd = &cobra.Command{
	Use:     "catalog",
	Short:   "Manage the search catalog",
	GroupID: groupData,
	Long: `Manage the SQLite catalog that backs "taller serve" and, with
catalog.use_for_local, local search.

Kinds: technician, client, vehicle, product.`,
}

var catalogSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the built-in records into the catalog",
	Args:  cobra.NoArgs,
	RunE:  runCatalogSeed,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <kind> <file>",
	Short: "Replace a kind with the records of a JSON file",
	Long: `Replace every record of a kind with the records of a JSON file: an array
of objects or a single object. Use "-" to read from stdin.

Examples:
  taller catalog import product productos.json
  curl -s -d '{"query":""}' $URL | taller catalog import client -`,
	Args: cobra.ExactArgs(2),
	RunE: runCatalogImport,
}

var catalogListCmd = &cobra.Command{
	Use:   "list [kind]",
	Short: "Show record counts, or the records of one kind",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalogList,
}

func init() {
	catalogCmd.AddCommand(catalogSeedCmd)
	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogListCmd)
}

// withCatalog runs fn against the configured catalog.
func withCatalog(cmd *cobra.Command, fn func(*session, *catalog.Store) error) error {
	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.close("catalog command finished")

	store, err := s.openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(s, store)
}

func runCatalogSeed(cmd *cobra.Command, args []string) error {
	return withCatalog(cmd, func(s *session, store *catalog.Store) error {
		datasets := make(map[string][]typeahead.Candidate, len(order.Fields))
		for _, f := range order.Fields {
			datasets[string(f)] = order.Seed(f)
		}
		if err := store.Seed(cmd.Context(), datasets); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%sSeeded%s %s\n", colorGreen, colorReset, s.cfg.CatalogPath(s.paths))
		return printCounts(cmd, store)
	})
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	kind := args[0]
	if !catalog.ValidKind(kind) {
		return fmt.Errorf("%w: %s", catalog.ErrUnknownKind, kind)
	}

	var in io.Reader = cmd.InOrStdin()
	if args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[1], err)
		}
		defer f.Close()
		in = f
	}

	return withCatalog(cmd, func(_ *session, store *catalog.Store) error {
		n, err := store.Import(cmd.Context(), kind, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%sImported%s %d %s records\n", colorGreen, colorReset, n, kind)
		return nil
	})
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	return withCatalog(cmd, func(_ *session, store *catalog.Store) error {
		if len(args) == 0 {
			return printCounts(cmd, store)
		}
		records, err := store.List(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	})
}

func printCounts(cmd *cobra.Command, store *catalog.Store) error {
	counts, err := store.Counts(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, kind := range catalog.Kinds {
		fmt.Fprintf(out, "  %s%-10s%s %d\n", colorCyan, kind, colorReset, counts[kind])
	}
	return nil
}
