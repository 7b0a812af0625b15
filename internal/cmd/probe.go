package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/runger/taller/internal/order"
	"github.com/runger/taller/internal/probe"
)

var (
	probeQuery       string
	probeParallelism int
)

var probeCmd = &cobra.Command{
	Use:     "probe",
	Short:   "Check the configured search endpoints",
	GroupID: groupData,
	Long: `POST a query to every configured search endpoint and report the status,
the start of the body, whether it is JSON, whether it is an array and the
keys of the first record.

Examples:
  taller probe
  taller probe --query ford`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeQuery, "query", probe.DefaultQuery, "Query sent to every endpoint")
	probeCmd.Flags().IntVar(&probeParallelism, "parallel", 4, "Endpoints probed at once")
}

func runProbe(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.close("probe finished")

	endpoints := s.endpoints()
	var targets []probe.Target
	for _, f := range order.Fields {
		if url, ok := endpoints[f]; ok {
			targets = append(targets, probe.Target{Name: string(f), URL: url})
		}
	}
	if len(targets) == 0 {
		return errors.New("no search endpoints configured (set search.endpoints.<field>)")
	}

	results := probe.Run(cmd.Context(), targets, probe.Options{
		Client:      &http.Client{Timeout: s.cfg.Search.Timeout()},
		Query:       probeQuery,
		Parallelism: probeParallelism,
	})
	probe.Report(cmd.OutOrStdout(), results)

	if n := probe.Failed(results); n > 0 {
		return fmt.Errorf("%d of %d endpoints failed", n, len(results))
	}
	return nil
}
