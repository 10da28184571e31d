package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Manage branches",
}

var (
	branchParent  string
	branchCreator string
)

var branchCreateCmd = &cobra.Command{
	Use:   "create <repo-id> <name>",
	Short: "Create a branch from the parent's current pointer set",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		branch, err := svc.CreateBranch(repoID, args[1], branchParent, branchCreator)
		if err != nil {
			return err
		}
		return printOutput(branch,
			[]string{"ID", "Name", "Default", "Created By", "Created"},
			[][]string{{strconv.FormatInt(branch.ID, 10), branch.Name,
				strconv.FormatBool(branch.IsDefault), branch.CreatedBy, formatTime(branch.CreatedAt)}})
	},
}

var branchListCmd = &cobra.Command{
	Use:   "list <repo-id>",
	Short: "List branches, default branch first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		branches, err := svc.ListBranches(repoID)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(branches))
		for _, b := range branches {
			rows = append(rows, []string{
				strconv.FormatInt(b.ID, 10), b.Name,
				strconv.FormatBool(b.IsDefault), b.CreatedBy, formatTime(b.CreatedAt),
			})
		}
		return printOutput(branches, []string{"ID", "Name", "Default", "Created By", "Created"}, rows)
	},
}

var branchGetCmd = &cobra.Command{
	Use:   "get <repo-id> <name>",
	Short: "Show a branch and the file versions it points at",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		detail, err := svc.GetBranch(repoID, args[1])
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(detail.Files))
		for _, f := range detail.Files {
			rows = append(rows, []string{
				strconv.FormatInt(f.FileID, 10), f.Filename, strconv.Itoa(f.VersionNumber),
			})
		}
		return printOutput(detail, []string{"File ID", "Filename", "Version"}, rows)
	},
}

var branchDeleteCmd = &cobra.Command{
	Use:   "delete <repo-id> <name>",
	Short: "Delete a branch (the default branch cannot be deleted)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		if err := svc.DeleteBranch(repoID, args[1]); err != nil {
			return err
		}
		fmt.Printf("Branch %q deleted\n", args[1])
		return nil
	},
}

var branchHistoryCmd = &cobra.Command{
	Use:   "history <repo-id> <name>",
	Short: "Show the branch's pointer change log, newest first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		history, err := svc.BranchHistory(repoID, args[1])
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(history))
		for _, e := range history {
			rows = append(rows, []string{
				truncate(e.ChangeID, 8),
				e.Filename,
				strconv.Itoa(e.VersionNumber),
				truncate(e.CommitMessage, 50),
				formatTime(e.CreatedAt),
			})
		}
		return printOutput(history,
			[]string{"Change", "File", "Version", "Message", "When"}, rows)
	},
}

func init() {
	branchCreateCmd.Flags().StringVar(&branchParent, "from", "", "Parent branch name (default branch when empty)")
	branchCreateCmd.Flags().StringVar(&branchCreator, "creator", "", "Creating principal")

	branchCmd.AddCommand(branchCreateCmd)
	branchCmd.AddCommand(branchListCmd)
	branchCmd.AddCommand(branchGetCmd)
	branchCmd.AddCommand(branchDeleteCmd)
	branchCmd.AddCommand(branchHistoryCmd)
}
