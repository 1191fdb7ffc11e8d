package main

import (
	"fmt"
	"os"

	"github.com/nbrandt/espalier/pkg/adapters/skillfile"
	"github.com/nbrandt/espalier/pkg/block"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the skill graphs for consistency",
	Long:  `Loads every skill file from the skills directory and reports unknown components, dead connections and unreachable blocks.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("skills")
		if len(args) > 0 {
			dir = args[0]
		}

		skills, err := skillfile.LoadDir(dir, block.Default())
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("All %d skill(s) are valid.\n", len(skills))
		for _, skill := range skills {
			fmt.Printf("  %s (%d blocks)\n", skill.Package, len(skill.Blocks))
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
