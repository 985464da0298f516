package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/vlogbook/backend/internal/container"
)

var recountCmd = &cobra.Command{
	Use:   "recount",
	Short: "Recompute like and comment counters from the stored rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(c *container.Container) error {
			n, err := c.Ledger().RecountAll(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(fmt.Sprintf("Recounted %d posts and videos", n), map[string]int{"processed": n})
		})
	},
}
