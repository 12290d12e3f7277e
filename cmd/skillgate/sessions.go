package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/skillgate/skillgate/pkg/presenter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and maintain session state",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var sessionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove acknowledged-skill records older than the retention window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		olderThan, err := cmd.Flags().GetDuration("older-than")
		if err != nil {
			return err
		}
		if olderThan == 0 {
			olderThan = viper.GetDuration("session.retention")
		}

		store, err := openSessionStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.Cleanup(cmd.Context(), olderThan)
		if err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Removed %d acknowledged-skill records older than %s", removed, olderThan))
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show acknowledged skills for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessionStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.Records(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if len(records) == 0 {
			presenter.Info("No acknowledged skills for this session")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "SKILL\tTYPE\tCONFIDENCE\tINJECTED AT")
		for _, r := range records {
			conf := "-"
			if r.Confidence != nil {
				conf = fmt.Sprintf("%.2f", *r.Confidence)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				r.SkillID, r.InjectionType, conf, r.InjectedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	sessionsCleanupCmd.Flags().Duration("older-than", 0, "Retention window override (e.g. 168h)")
	sessionsCmd.AddCommand(sessionsCleanupCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
}
