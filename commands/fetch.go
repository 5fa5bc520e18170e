package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/reefworks/domaingen/datastore"
)

func fetchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <handle> <dest>",
		Short: "Download a dataset from the data store into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(*configPath)
			if err != nil {
				return err
			}
			client := datastore.NewClient(cfg.Store.Endpoint, datastore.WithLogger(slog.Default()))
			if err := client.Fetch(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Fetched %s into %s\n", args[0], args[1])
			return nil
		},
	}
}
