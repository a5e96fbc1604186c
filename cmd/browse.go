package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/stimulus-cli/internal/picker"
)

func newBrowseCmd(deps *dependencies) *cobra.Command {
	var opts presentOptions

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Pick a saved spec from a list and present it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			lib, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			result, err := lib.LoadAll()
			if err != nil {
				return err
			}
			for _, d := range result.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s: %s\n", d.Path, d.Kind, d.Detail)
			}
			if len(result.Entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No specs in %s\n", lib.Dir())
				return nil
			}

			items := make([]picker.Item, len(result.Entries))
			for i, e := range result.Entries {
				items[i] = picker.Item{ID: e.Address.String(), Summary: e.Spec.Describe()}
			}
			idx, err := deps.pick("Stimulus specs", items)
			if err != nil {
				return err
			}
			if idx == picker.Aborted {
				fmt.Fprintln(cmd.OutOrStdout(), "No spec selected")
				return nil
			}
			if idx < 0 || idx >= len(result.Entries) {
				return fmt.Errorf("picker returned index %d out of range", idx)
			}

			_, err = runPresentation(ctx, cmd.OutOrStdout(), deps, cfg, &result.Entries[idx], opts)
			return err
		},
	}
	opts.bind(browseCmd.Flags())
	return browseCmd
}
