package cmd

import (
	"errors"
	"fmt"

	"relsave/core/storage"

	"github.com/spf13/cobra"
)

var (
	journalLimit int
	journalKeep  int
)

// journalCmd represents the journal command group
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Browse the save reports stored in object storage",
}

var journalListCmd = &cobra.Command{
	Use:   "list [model]",
	Short: "List stored save reports, oldest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := requireJournal(cmd)
		if err != nil {
			return err
		}
		model := ""
		if len(args) == 1 {
			model = args[0]
		}

		entries, err := journal.List(cmd.Context(), model, journalLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  %6d  %s\n", e.LastModified.Format("2006-01-02 15:04:05"), e.Size, e.Key)
		}
		fmt.Printf("%d report(s)\n", len(entries))
		return nil
	},
}

var journalShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Print one save report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := requireJournal(cmd)
		if err != nil {
			return err
		}
		report, err := journal.Read(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var journalPruneCmd = &cobra.Command{
	Use:   "prune [model]",
	Short: "Remove all but the newest reports of a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := requireJournal(cmd)
		if err != nil {
			return err
		}
		removed, err := journal.Prune(cmd.Context(), args[0], journalKeep)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d report(s)\n", removed)
		return nil
	},
}

func init() {
	journalListCmd.Flags().IntVar(&journalLimit, "limit", 20, "Show only the newest N reports (0 for all)")
	journalPruneCmd.Flags().IntVar(&journalKeep, "keep", 100, "Number of reports to keep")

	journalCmd.AddCommand(journalListCmd, journalShowCmd, journalPruneCmd)
	RootCmd.AddCommand(journalCmd)
}

func requireJournal(cmd *cobra.Command) (*storage.Journal, error) {
	cfg, logg := setup()
	journal, err := openJournal(cmd.Context(), cfg.Storage, logg)
	if err != nil {
		return nil, err
	}
	if journal == nil {
		return nil, errors.New("storage is disabled; set STORAGE_ENABLED=true")
	}
	return journal, nil
}
