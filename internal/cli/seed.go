package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/store"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load draft workflow runs from a YAML fixture into the draft store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf, err := store.LoadSeedFile(args[0])
			if err != nil {
				return err
			}
			st, err := openDraftDB(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := store.Seed(cmd.Context(), st, sf)
			for _, run := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", run.OrcabusID, run.PortalRunID, run.CurrentState.Status)
			}
			if err != nil {
				return err
			}
			logger.Info("seeded draft store", "runs", len(runs))
			return nil
		},
	}
}
