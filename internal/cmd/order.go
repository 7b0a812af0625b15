package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gofrs/flock"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/runger/taller/internal/order"
	"github.com/runger/taller/internal/orderui"
)

// minTermWidth is the narrowest terminal the form is drawn in.
const minTermWidth = 40

var orderCmd = &cobra.Command{
	Use:     "order",
	Short:   "Fill in a work order",
	GroupID: groupForm,
	Long: `Open the work order form in the terminal.

Type in the technician, client, vehicle or product field to search; click a
result to fill in the form. Press esc to finish; the order is printed as
JSON on stdout.`,
	Args: cobra.NoArgs,
	RunE: runOrder,
}

func runOrder(cmd *cobra.Command, args []string) error {
	if os.Getenv("TERM") == "dumb" {
		return errors.New("TERM=dumb is not supported")
	}
	if w := termWidth(); w > 0 && w < minTermWidth {
		return fmt.Errorf("terminal too narrow (%d columns, need at least %d)", w, minTermWidth)
	}

	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.close("form closed")

	lock, err := lockOrder(s.paths.LockFile())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	changes := orderui.NewChanges()
	f, err := s.mountForm(cmd.Context(), changes.Notify)
	if err != nil {
		return err
	}

	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).ColorProfile())
	p := tea.NewProgram(orderui.NewModel(f, changes),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	m, ok := final.(orderui.Model)
	if !ok {
		return errors.New("unexpected model type")
	}
	if !m.Finished() {
		return errors.New("form closed before it was finished")
	}
	return writeOrder(cmd.OutOrStdout(), m.Order())
}

// lockOrder takes the single-instance lock of the order form.
func lockOrder(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, errors.New("another order form is already open")
	}
	return lock, nil
}

func writeOrder(w io.Writer, o order.Order) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}
