package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/handlers"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

func newHandlersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handlers",
		Short: "List the available handlers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var infos []model.HandlerInfo
			if flagServer != "" {
				var err error
				infos, err = NewClient(flagServer, logger).Handlers()
				if err != nil {
					return fmt.Errorf("list handlers: %w", err)
				}
			} else {
				infos = handlers.New(handlers.Deps{Config: cfg, Logger: logger}).List()
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-38s  %s\n", "NAME", "DESCRIPTION")
			fmt.Fprintf(w, "%-38s  %s\n", "----", "-----------")
			for _, info := range infos {
				fmt.Fprintf(w, "%-38s  %s\n", info.Name, info.Description)
			}
			return nil
		},
	}
}
