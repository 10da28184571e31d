package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gitlite/gitlite/pkg/vcs"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Manage merge requests and their conflicts",
}

var (
	mergeTitle       string
	mergeDescription string
	mergeCreator     string
	mergeActor       string
	mergeStatus      string
	resolveStrategy  string
	resolveContent   string
	resolvePath      string
)

func mergeRequestRow(d vcs.MergeRequestDetail) []string {
	return []string{
		strconv.FormatInt(d.ID, 10),
		truncate(d.Title, 40),
		d.SourceBranchName + " -> " + d.TargetBranchName,
		string(d.Status),
		strconv.FormatBool(d.HasConflicts),
		formatTime(d.CreatedAt),
	}
}

var mergeCreateCmd = &cobra.Command{
	Use:   "create <repo-id> <source-branch> <target-branch>",
	Short: "Open a merge request, detecting conflicts up front",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		detail, err := svc.CreateMergeRequest(repoID, args[1], args[2], mergeTitle, mergeDescription, mergeCreator)
		if err != nil {
			return err
		}
		if err := printOutput(detail,
			[]string{"ID", "Title", "Branches", "Status", "Conflicts", "Created"},
			[][]string{mergeRequestRow(*detail)}); err != nil {
			return err
		}
		if len(detail.Conflicts) > 0 {
			fmt.Printf("%d conflicted file(s); resolve them before executing the merge\n", len(detail.Conflicts))
		}
		return nil
	},
}

var mergeListCmd = &cobra.Command{
	Use:   "list <repo-id>",
	Short: "List merge requests, newest first",
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
		requests, err := svc.ListMergeRequests(repoID, vcs.MergeRequestStatus(mergeStatus))
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(requests))
		for _, r := range requests {
			rows = append(rows, mergeRequestRow(r))
		}
		return printOutput(requests,
			[]string{"ID", "Title", "Branches", "Status", "Conflicts", "Created"}, rows)
	},
}

var mergeGetCmd = &cobra.Command{
	Use:   "get <merge-id>",
	Short: "Show a merge request with its conflicts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mergeID, err := parseID(args[0], "merge request id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		detail, err := svc.GetMergeRequest(mergeID)
		if err != nil {
			return err
		}
		if err := printOutput(detail,
			[]string{"ID", "Title", "Branches", "Status", "Conflicts", "Created"},
			[][]string{mergeRequestRow(*detail)}); err != nil {
			return err
		}
		if len(detail.Conflicts) > 0 {
			rows := make([][]string, 0, len(detail.Conflicts))
			for _, c := range detail.Conflicts {
				rows = append(rows, []string{
					strconv.FormatInt(c.ConflictID, 10),
					c.Filename,
					strconv.Itoa(c.SourceVersion),
					strconv.Itoa(c.TargetVersion),
				})
			}
			return printTable(os.Stdout,
				[]string{"Conflict ID", "File", "Source Ver", "Target Ver"}, rows)
		}
		return nil
	},
}

var mergeResolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id>",
	Short: "Resolve one conflict with ours, theirs, or manual content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conflictID, err := parseID(args[0], "conflict id")
		if err != nil {
			return err
		}
		content := resolveContent
		if resolvePath != "" {
			data, err := os.ReadFile(resolvePath)
			if err != nil {
				return fmt.Errorf("read resolution content: %w", err)
			}
			content = string(data)
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		resolution, err := svc.ResolveConflict(conflictID,
			vcs.ResolutionStrategy(resolveStrategy), content)
		if err != nil {
			return err
		}
		fmt.Printf("Conflict %d resolved (%s), target now at version %d\n",
			conflictID, resolveStrategy, resolution.VersionNumber)
		return nil
	},
}

var mergeExecuteCmd = &cobra.Command{
	Use:   "execute <merge-id>",
	Short: "Execute a merge request once all conflicts are resolved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mergeID, err := parseID(args[0], "merge request id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		request, err := svc.ExecuteMerge(mergeID, mergeActor)
		if err != nil {
			return err
		}
		fmt.Printf("Merge request %d is %s\n", request.ID, request.Status)
		return nil
	},
}

var mergeCloseCmd = &cobra.Command{
	Use:   "close <merge-id>",
	Short: "Close a merge request without merging",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mergeID, err := parseID(args[0], "merge request id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		request, err := svc.CloseMergeRequest(mergeID)
		if err != nil {
			return err
		}
		fmt.Printf("Merge request %d is %s\n", request.ID, request.Status)
		return nil
	},
}

func init() {
	mergeCreateCmd.Flags().StringVar(&mergeTitle, "title", "", "Merge request title (required)")
	mergeCreateCmd.Flags().StringVar(&mergeDescription, "description", "", "Merge request description")
	mergeCreateCmd.Flags().StringVar(&mergeCreator, "creator", "", "Creating principal")
	mergeListCmd.Flags().StringVar(&mergeStatus, "status", "", "Filter by status: open, conflicts, merged, closed")
	mergeResolveCmd.Flags().StringVar(&resolveStrategy, "strategy", "", "Resolution strategy: ours, theirs, manual")
	mergeResolveCmd.Flags().StringVar(&resolveContent, "content", "", "Resolved content for manual strategy")
	mergeResolveCmd.Flags().StringVar(&resolvePath, "content-file", "", "Path to a file holding the resolved content")
	mergeExecuteCmd.Flags().StringVar(&mergeActor, "by", "", "Merging principal")

	mergeCmd.AddCommand(mergeCreateCmd)
	mergeCmd.AddCommand(mergeListCmd)
	mergeCmd.AddCommand(mergeGetCmd)
	mergeCmd.AddCommand(mergeResolveCmd)
	mergeCmd.AddCommand(mergeExecuteCmd)
	mergeCmd.AddCommand(mergeCloseCmd)
}
