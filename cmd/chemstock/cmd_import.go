package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/chemstock/internal/adapters/filestore"
	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

func newImportCmd(c *cli) *cobra.Command {
	var uploadedBy string
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Bulk-import every PDF in a directory as SDS documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			uploads, err := filestore.LoadDir(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(uploads) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no PDF files in %s\n", args[0])
				return nil
			}

			report, err := a.services.SDS.ImportBatch(cmd.Context(), uploads, uploadedBy)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVar(&uploadedBy, "as", "", "user id recorded as uploader")
	return cmd
}

func printReport(out io.Writer, report *entities.ImportReport) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tLABEL\tRESULT")
	for _, item := range report.Items {
		var result string
		switch {
		case item.Error != "":
			result = "error: " + item.Error
		case item.Match != nil:
			result = fmt.Sprintf("%s (distance %d)", item.Match.Entry.Name, item.Match.Distance)
		default:
			result = "needs review"
			if len(item.Suggestions) > 0 {
				result += " (try " + item.Suggestions[0].Name + ")"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", item.FileName, item.Label, result)
	}
	tw.Flush()
	fmt.Fprintf(out, "\n%d matched, %d need review, %d failed\n", report.Matched, report.NeedsReview, report.Failed)
}
