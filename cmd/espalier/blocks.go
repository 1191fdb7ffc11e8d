package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nbrandt/espalier/pkg/block"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "List the available block components",
	Run: func(cmd *cobra.Command, args []string) {
		var sb strings.Builder
		sb.WriteString("# Block components\n\n")
		sb.WriteString("| Component | Name | Category | Summary |\n")
		sb.WriteString("|-----------|------|----------|---------|\n")
		for _, entry := range block.Default().Catalog() {
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n",
				entry.Component, entry.Descriptor.Name, entry.Descriptor.Category, entry.Descriptor.Summary)
		}

		if term.IsTerminal(int(os.Stdout.Fd())) {
			if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
				if rendered, err := r.Render(sb.String()); err == nil {
					fmt.Print(rendered)
					return
				}
			}
		}
		fmt.Print(sb.String())
	},
}

func init() {
	rootCmd.AddCommand(blocksCmd)
}
