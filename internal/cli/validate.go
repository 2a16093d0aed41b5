package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/installkit/wixpdb/pkg/pdb"
)

// validateCommand creates the "validate" command. Both checks default to
// on; the config file or flags can switch either off.
func (c *CLI) validateCommand() *cobra.Command {
	var noVersionCheck, noSchema bool

	cmd := &cobra.Command{
		Use:   "validate <file.wixpdb>",
		Short: "Validate a container's schema and format version",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			_, err := pdb.Load(args[0], pdb.LoadOptions{
				SuppressVersionCheck:     noVersionCheck || c.Config.NoVersionCheck,
				SuppressSchemaValidation: noSchema || c.Config.NoSchema,
				TempDir:                  c.Config.TempDir,
			})
			if err != nil {
				return err
			}

			logger.Debugf("Container %s is valid", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", args[0])
			return nil
		},
	}

	cmd.Args = cobra.ExactArgs(1)
	cmd.Flags().BoolVar(&noVersionCheck, "no-version-check", false, "accept any format version")
	cmd.Flags().BoolVar(&noSchema, "no-schema", false, "skip schema validation")
	return cmd
}
