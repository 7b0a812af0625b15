package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/taller/internal/config"
)

var (
	logsFollow bool
	logsLines  int
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Short:   "View the log file",
	GroupID: groupSetup,
	Long: `View the taller log file. The order form and scripts log there because
the terminal belongs to the form.

By default, shows the last 50 lines of the log file.
Use --follow to continuously monitor new log entries.

Examples:
  taller logs              # Show last 50 lines
  taller logs -f           # Follow log output
  taller logs --lines=100  # Show last 100 lines`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines to show")
}

func runLogs(cmd *cobra.Command, args []string) error {
	paths := config.DefaultPaths()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logFile := cfg.LogPath(paths)
	out := cmd.OutOrStdout()

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "No log file found at: %s\n", logFile)
		return nil
	}

	if logsFollow {
		return followLogs(cmd.Context(), out, logFile)
	}
	return tailLogs(out, logFile, logsLines)
}

// tailLogs prints the last n lines of filename.
func tailLogs(out io.Writer, filename string, n int) error {
	if n <= 0 {
		return nil
	}

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	// Ring of the last n lines.
	ring := make([]string, n)
	count := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		ring[count%n] = sc.Text()
		count++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(out, "Log file is empty.")
		return nil
	}

	start := 0
	if count > n {
		start = count - n
	}
	for i := start; i < count; i++ {
		fmt.Fprintln(out, highlight(ring[i%n]))
	}
	return nil
}

// highlight colors error records.
func highlight(line string) string {
	if strings.Contains(line, "level=ERROR") {
		return colorRed + line + colorReset
	}
	return line
}

func followLogs(ctx context.Context, out io.Writer, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(out, "Following %s (Ctrl+C to stop)...\n\n", filename)

	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			fmt.Fprint(out, line)
		}
		if err == nil {
			continue
		}
		if err != io.EOF {
			return fmt.Errorf("error reading log: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(100 * time.Millisecond):
		}
	}
}
