package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/comigor/bizanalyst/internal/view"
)

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect saved chats",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved chats, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore := a.openStore()
			defer closeStore()

			view.NewTerminalView(cmd.OutOrStdout()).History(store.ListAll(), "")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore := a.openStore()
			defer closeStore()

			rec, err := store.Load(args[0])
			if err != nil {
				return err
			}
			v := view.NewTerminalView(cmd.OutOrStdout())
			v.Notice(rec.Title)
			v.Transcript(rec.Messages)
			return nil
		},
	})

	var output string
	export := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a saved chat as a standalone HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore := a.openStore()
			defer closeStore()

			rec, err := store.Load(args[0])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return view.WriteHTML(cmd.OutOrStdout(), rec)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := view.WriteHTML(f, rec); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.AddCommand(export)

	return cmd
}
