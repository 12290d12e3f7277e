package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/skillgate/skillgate/pkg/catalog"
	"github.com/skillgate/skillgate/pkg/presenter"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the skill catalog",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog skills with their triggers and affinities",
	RunE: func(_ *cobra.Command, _ []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}

		presenter.Section(fmt.Sprintf("Skill catalog (%d skills, hash %.12s)", len(cat.Skills), cat.Hash()))

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tAUTO\tKEYWORDS\tAFFINITY\tDESCRIPTION")
		for _, id := range cat.IDs() {
			s := cat.Get(id)
			auto := "yes"
			if !s.AutoInject {
				auto = "no"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				id, auto, len(s.Keywords), strings.Join(s.Affinity, ","), truncate(s.Description, 60))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if untriggered := untriggeredSkills(cat); len(untriggered) > 0 {
			presenter.Warning(fmt.Sprintf(
				"skills with no keywords or intent patterns (keyword fallback can never select them): %s",
				strings.Join(untriggered, ", ")))
		}
		return nil
	},
}

// untriggeredSkills returns the identifiers of skills that define neither
// keywords nor intent patterns, sorted by identifier.
func untriggeredSkills(cat *catalog.Catalog) []string {
	var ids []string
	for _, id := range cat.IDs() {
		s := cat.Get(id)
		if len(s.Keywords) == 0 && len(s.IntentPatterns) == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// truncate shortens a description for the table, counting runes so a
// multibyte character is never split.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
}
