package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"relsave/core/database"
	"relsave/core/relsave"
	"relsave/core/utils"
	"relsave/feature/project"

	"github.com/spf13/cobra"
)

var (
	assignName    string
	assignCompany string
	assignUsers   []string
	assignLinks   []string
	assignClear   []string
	assignDryRun  bool
)

// projectCmd represents the project command group
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect and assign project relations",
}

var projectShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a project with its company, users and links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseProjectID(args[0])
		if err != nil {
			return err
		}
		svc, err := projectService(cmd)
		if err != nil {
			return err
		}

		p, err := svc.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var projectAssignCmd = &cobra.Command{
	Use:   "assign [id|new]",
	Short: "Assign relations to a project in one save",
	Long: `Stages the given relations and saves them in one transaction.
Keys are primary keys; composite keys are colon separated (fr:mac_os_x).
Use "new" instead of an id to create a project.`,
	Example: `  relsave project assign 1 --company 3 --users 1,3 --links fr:mac_os_x
  relsave project assign new --name Yosemite --company 1 --dry-run
  relsave project assign 2 --clear users`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := assignInput(cmd)
		if err != nil {
			return err
		}
		svc, err := projectService(cmd)
		if err != nil {
			return err
		}

		var res *project.Result
		if args[0] == "new" {
			res, err = svc.Create(cmd.Context(), in, assignDryRun)
		} else {
			id, perr := parseProjectID(args[0])
			if perr != nil {
				return perr
			}
			res, err = svc.Update(cmd.Context(), id, in, assignDryRun)
		}
		if err != nil {
			return err
		}

		if res.Errors.Len() > 0 {
			fmt.Println("--- Validation Failed ---")
			for name, msgs := range res.Errors {
				for _, msg := range msgs {
					fmt.Printf("  %-10s %s\n", name, msg)
				}
			}
			return res.Errors.Err()
		}
		if assignDryRun {
			fmt.Println("--- Dry Run Plan ---")
		}
		if res.Plan != nil {
			printPlan(res.Plan)
		}
		return printJSON(res.Project)
	},
}

func init() {
	projectAssignCmd.Flags().StringVar(&assignName, "name", "", "Rename the project")
	projectAssignCmd.Flags().StringVar(&assignCompany, "company", "", "Company key")
	projectAssignCmd.Flags().StringSliceVar(&assignUsers, "users", nil, "User keys, replaces the linked users")
	projectAssignCmd.Flags().StringSliceVar(&assignLinks, "links", nil, "Link keys as language:name, replaces the linked links")
	projectAssignCmd.Flags().StringSliceVar(&assignClear, "clear", nil, "Relations to clear")
	projectAssignCmd.Flags().BoolVar(&assignDryRun, "dry-run", false, "Print the planned writes without saving")

	projectCmd.AddCommand(projectShowCmd, projectAssignCmd)
	RootCmd.AddCommand(projectCmd)
}

func projectService(cmd *cobra.Command) (*project.Service, error) {
	cfg, logg := setup()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	var journal relsave.Journal
	if j, err := openJournal(cmd.Context(), cfg.Storage, logg); err != nil {
		return nil, err
	} else if j != nil {
		journal = j
	}
	return project.NewService(db, journal, nil, logg), nil
}

// assignInput builds the change request from the flags.
func assignInput(cmd *cobra.Command) (project.Input, error) {
	in := project.Input{Relations: map[string]any{}}
	if cmd.Flags().Changed("name") {
		in.Name = &assignName
	}
	if cmd.Flags().Changed("company") {
		key, err := utils.ParseKey(assignCompany)
		if err != nil {
			return in, fmt.Errorf("--company: %w", err)
		}
		in.Relations["company"] = key
	}

	lists := []struct {
		flag   string
		name   string
		values []string
	}{
		{"users", "users", assignUsers},
		{"links", "links", assignLinks},
	}
	for _, l := range lists {
		if !cmd.Flags().Changed(l.flag) {
			continue
		}
		keys := make([]any, 0, len(l.values))
		for _, raw := range l.values {
			key, err := utils.ParseKey(raw)
			if err != nil {
				return in, fmt.Errorf("--%s: %w", l.flag, err)
			}
			keys = append(keys, key)
		}
		in.Relations[l.name] = keys
	}

	for _, name := range assignClear {
		in.Relations[strings.TrimSpace(name)] = nil
	}
	return in, nil
}

func parseProjectID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid project id %q", s)
	}
	return uint(id), nil
}

func printPlan(plan *relsave.Plan) {
	fmt.Printf("Relations: %d  Inserts: %d  Updates: %d  Links: %d  Unlinks: %d\n",
		plan.Summary.Relations, plan.Summary.Inserts, plan.Summary.Updates, plan.Summary.Links, plan.Summary.Unlinks)
	for _, a := range plan.Actions {
		fmt.Printf("  %-7s %-8s %s\n", a.Type, a.Relation, a.Key)
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
