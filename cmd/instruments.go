package main

import (
	"fmt"
	"strings"

	"github.com/0xlemi/tunemaster/internal/config"
	"github.com/spf13/cobra"
)

func newInstrumentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instruments",
		Short: "Manage instrument presets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List built-in and user presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, presets, err := a.stores()
			if err != nil {
				return err
			}
			instruments, err := presets.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, inst := range instruments {
				kind := "built-in"
				if inst.UserDefined {
					kind = "user"
				}
				fmt.Fprintf(out, "%-18s %-24s %-8s %s\n", inst.ID, inst.Name, kind, strings.Join(inst.StringNames(), " "))
			}
			return nil
		},
	}

	var name string
	add := &cobra.Command{
		Use:     "add <id> <note>...",
		Short:   "Add or replace a user preset",
		Example: "  tunemaster instruments add guitar-dadgad --name \"Guitar (DADGAD)\" D2 A2 D3 G3 A3 D4",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, presets, err := a.stores()
			if err != nil {
				return err
			}
			inst, err := config.NewInstrument(args[0], name, args[1:])
			if err != nil {
				return err
			}
			if err := presets.Add(inst); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s: %s\n", inst.ID, strings.Join(inst.StringNames(), " "))
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name (default: the id)")

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a user preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, presets, err := a.stores()
			if err != nil {
				return err
			}
			if err := presets.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}
