package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/taller/internal/order"
)

var scriptCmd = &cobra.Command{
	Use:     "script [file]",
	Short:   "Drive the order form from a script",
	GroupID: groupForm,
	Long: `Run a line-oriented session against the order form without a terminal.

Reads the script from file, or from stdin when no file (or "-") is given.

Commands:
  type <field> <text>      replace the field's input value
  clear <field>            empty the field's input
  wait [timeout]           block until every search has finished
  pick <field> <n>         click the n-th result row (0-based)
  click <element-id>       click any element
  set <element-id> <text>  write an input value without searching
  add                      press the add-item button
  show <field>             print the field's results
  expect <element-id> <v>  fail unless the value (or text) equals v
  visible <field> <bool>   fail unless the results visibility matches
  values                   print every non-empty field value
  order                    print the order as JSON

Fields: technician, client, vehicle, product (or their input ids).

Examples:
  taller script session.txt
  printf 'type technician ana\nwait\nshow technician\n' | taller script`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.close("script finished")

	f, err := s.mountForm(cmd.Context(), nil)
	if err != nil {
		return err
	}
	return order.NewScript(f, cmd.OutOrStdout()).Run(cmd.Context(), in)
}
