package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/installkit/wixpdb/pkg/pdb"
)

// stripCommand creates the "strip" command: load a container and save it
// back without any embedded cabinet, producing the bare XML form.
func (c *CLI) stripCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "strip <file.wixpdb>",
		Short: "Rewrite a composite container as bare XML",
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

			hadCabinet := container.Output.Cabinet != nil
			container.Output.Cabinet = nil
			container.Output.EmbedFiles = nil

			if err := container.Save(outPath, nil, nil, c.Config.TempDir); err != nil {
				return err
			}

			if hadCabinet {
				p.done(fmt.Sprintf("Stripped cabinet, wrote %s", outPath))
			} else {
				p.done(fmt.Sprintf("No cabinet present, rewrote %s", outPath))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "destination path for the bare container")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
