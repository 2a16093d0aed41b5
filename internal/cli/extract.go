package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/installkit/wixpdb/pkg/pdb"
)

// extractCommand creates the "extract" command: write the embedded cabinet
// payload of a composite container to a file.
func (c *CLI) extractCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "extract <file.wixpdb>",
		Short: "Extract the embedded cabinet from a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			container, err := pdb.Load(args[0], pdb.LoadOptions{
				SuppressVersionCheck:     true,
				SuppressSchemaValidation: true,
				TempDir:                  c.Config.TempDir,
			})
			if err != nil {
				return err
			}
			cabinet := container.Output.Cabinet
			if cabinet == nil {
				return fmt.Errorf("%s has no embedded cabinet", args[0])
			}

			in, err := cabinet.Open()
			if err != nil {
				return err
			}
			defer in.Close()

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			defer out.Close()

			n, err := io.Copy(out, in)
			if err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}

			logger.Infof("Extracted %d cabinet bytes to %s", n, outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "destination path for the cabinet")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
