package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/runger/taller/internal/catalog"
	"github.com/runger/taller/internal/order"
	"github.com/runger/taller/internal/searchd"
)

var (
	serveAddr   string
	serveMemory bool
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the development search backend",
	GroupID: groupData,
	Long: `Serve POST /search/{technician,client,vehicle,product} from the catalog.

Each request body is {"query": "<text>"}; the answer is a JSON array of the
matching records (a single match is answered as an object when
server.unwrap_single is set). An empty catalog is served from the built-in
records.

Examples:
  taller serve
  taller serve --addr :9000 --memory`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "Serve the built-in records instead of the catalog")
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.close("server stopped")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := serveSource(ctx, s)
	if err != nil {
		return err
	}
	defer closeSource()

	addr := serveAddr
	if addr == "" {
		addr = s.cfg.Server.Addr
	}
	srv := searchd.New(searchd.Options{
		Source:       source,
		UnwrapSingle: s.cfg.Server.UnwrapSingle,
		Logger:       s.logger,
	})
	return srv.Run(ctx, addr)
}

// serveSource picks the catalog, or the built-in records when asked to or
// when the catalog is empty.
func serveSource(ctx context.Context, s *session) (searchd.Source, func(), error) {
	if serveMemory {
		return seedSource(), func() {}, nil
	}
	store, err := s.openCatalog()
	if err != nil {
		return nil, nil, err
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		_ = store.Close()
		s.logger.Warn("catalog is empty, serving built-in records", "hint", "taller catalog seed")
		return seedSource(), func() {}, nil
	}
	return store, func() { _ = store.Close() }, nil
}

func seedSource() searchd.MemorySource {
	src := make(searchd.MemorySource, len(catalog.Kinds))
	for _, f := range order.Fields {
		src[string(f)] = order.Seed(f)
	}
	return src
}
