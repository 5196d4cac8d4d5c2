package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/bullet-ranker/internal/ranking"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the available weight profiles",
	Run: func(_ *cobra.Command, _ []string) {
		for _, name := range ranking.Profiles() {
			w := ranking.WeightsFor(name)
			fmt.Printf("%-12s relevance=%.2f quality=%.2f recency=%.2f redundancy=%.2f\n",
				name, w.Relevance, w.Quality, w.Recency, w.Redundancy)
		}
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
