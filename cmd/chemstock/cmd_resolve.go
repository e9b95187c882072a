package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/chemstock/internal/domain/usecases"
)

func newResolveCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "resolve <label>...",
		Short: "Show which catalog chemical a label or file name resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, raw := range args {
				label := usecases.NormalizeChemicalName(raw)
				match, err := a.services.Resolver.Resolve(cmd.Context(), raw)
				if err != nil {
					return err
				}
				if match != nil {
					fmt.Fprintf(out, "%s -> %s [%s] distance %d\n", raw, match.Entry.Name, match.Entry.ID, match.Distance)
					continue
				}

				suggestions, err := a.services.Resolver.Suggest(cmd.Context(), raw, limit)
				if err != nil {
					return err
				}
				names := make([]string, len(suggestions))
				for i, s := range suggestions {
					names[i] = s.Name
				}
				fmt.Fprintf(out, "%s -> no match for %q", raw, label)
				if len(names) > 0 {
					fmt.Fprintf(out, "; similar: %s", strings.Join(names, ", "))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "suggestions", "n", 3, "suggestions shown when nothing matches")
	return cmd
}
