package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/installkit/wixpdb/pkg/pdb"
)

// infoCommand creates the "info" command: a read-only container summary.
// Inspection should work on containers from any toolset version, so the
// version gate and schema validation are both off here.
func (c *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.wixpdb>",
		Short: "Summarize a build metadata container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			p := newProgress(logger)

			container, err := pdb.Load(args[0], pdb.LoadOptions{
				SuppressVersionCheck:     true,
				SuppressSchemaValidation: true,
				TempDir:                  c.Config.TempDir,
			})
			if err != nil {
				return err
			}
			p.done(fmt.Sprintf("Loaded %s", args[0]))

			out := cmd.OutOrStdout()
			o := container.Output
			fmt.Fprintf(out, "version:  %s\n", container.FormatVersion)
			if o.Type != "" {
				fmt.Fprintf(out, "type:     %s\n", o.Type)
			}
			if o.Codepage != 0 {
				fmt.Fprintf(out, "codepage: %d\n", o.Codepage)
			}
			fmt.Fprintf(out, "tables:   %d\n", len(o.Tables))
			fmt.Fprintf(out, "rows:     %d\n", o.RowCount())
			if o.Cabinet != nil {
				fmt.Fprintf(out, "cabinet:  embedded, %d bytes\n", o.Cabinet.Size)
			} else {
				fmt.Fprintf(out, "cabinet:  none\n")
			}
			for _, t := range o.Tables {
				fmt.Fprintf(out, "  table %-24s %d row(s)\n", t.Name, len(t.Rows))
			}
			return nil
		},
	}
}
