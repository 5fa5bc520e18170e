package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func formattersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formatters",
		Short: "List registered formatters and their options",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := newRegistry()
			if err != nil {
				return err
			}
			for _, name := range registry.Names() {
				reg, err := registry.Get(name)
				if err != nil {
					return err
				}
				fmt.Printf("%s\n    %s\n", reg.Name, reg.Description)
				for _, field := range reg.Schema {
					required := ""
					if field.Required {
						required = " (required)"
					} else if field.Default != nil {
						required = fmt.Sprintf(" (default %v)", field.Default)
					}
					fmt.Printf("    --%-20s %s%s\n", field.Name, field.Description, required)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
