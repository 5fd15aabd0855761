package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/osm-powerplants/internal/cli"
	"github.com/Veraticus/osm-powerplants/internal/countries"
	"github.com/spf13/cobra"
)

func countriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "countries [FILTER]",
		Short: "List the countries accepted by process",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = strings.ToLower(args[0])
			}

			var rows [][]string
			for _, c := range countries.All() {
				if filter != "" && !strings.Contains(strings.ToLower(c.Name), filter) &&
					!strings.EqualFold(c.Alpha2, filter) && !strings.EqualFold(c.Alpha3, filter) {
					continue
				}
				rows = append(rows, []string{c.Alpha2, c.Alpha3, c.Name})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("No country matches %q", filter)))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.Table([]string{"Alpha-2", "Alpha-3", "Name"}, rows))
			return nil
		},
	}
}
