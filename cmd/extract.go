package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/spf13/cobra"
)

func extractCommand(a *app) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "List the distance candidates found in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentType, err := dto.ContentTypeFor(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			svc, err := a.runLogService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			cands, err := svc.Preview(cmd.Context(), contentType, data, dto.ExtractionMode(mode))
			if err != nil {
				return err
			}
			if len(cands) == 0 {
				return dto.ErrNoCandidateFound
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VALUE\tUNIT\tCONFIDENCE\tFRAGMENT")
			for _, c := range cands {
				fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\n", c.Canonical(), c.Unit, c.Confidence, c.SourceIndex)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "extraction mode: UNIT_SUFFIXED or ANY_NUMBER (default from config)")
	return cmd
}
