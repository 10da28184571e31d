package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gitlite/gitlite/pkg/vcs"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage repositories",
}

var (
	repoDescription string
	repoOwner       string
	repoNewName     string
	activityLimit   int
)

var repoCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a repository with its default branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		repo, err := svc.CreateRepository(args[0], repoDescription, repoOwner)
		if err != nil {
			return err
		}
		return printOutput(repo,
			[]string{"ID", "Name", "Owner", "Created"},
			[][]string{{strconv.FormatInt(repo.ID, 10), repo.Name, repo.OwnerID, formatTime(repo.CreatedAt)}})
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List repositories, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		repos, err := svc.ListRepositories(repoOwner)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(repos))
		for _, r := range repos {
			rows = append(rows, []string{
				strconv.FormatInt(r.ID, 10), r.Name, r.OwnerID, formatTime(r.CreatedAt),
			})
		}
		return printOutput(repos, []string{"ID", "Name", "Owner", "Created"}, rows)
	},
}

var repoGetCmd = &cobra.Command{
	Use:   "get <repo-id>",
	Short: "Show a repository",
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
		repo, err := svc.GetRepository(repoID)
		if err != nil {
			return err
		}
		return printOutput(repo,
			[]string{"ID", "Name", "Description", "Owner", "Created"},
			[][]string{{strconv.FormatInt(repo.ID, 10), repo.Name,
				truncate(repo.Description, 40), repo.OwnerID, formatTime(repo.CreatedAt)}})
	},
}

var repoUpdateCmd = &cobra.Command{
	Use:   "update <repo-id>",
	Short: "Update repository metadata (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		update := vcs.RepositoryUpdate{}
		if cmd.Flags().Changed("name") {
			update.Name = &repoNewName
		}
		if cmd.Flags().Changed("description") {
			update.Description = &repoDescription
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		repo, err := svc.UpdateRepository(repoID, repoOwner, update)
		if err != nil {
			return err
		}
		return printOutput(repo,
			[]string{"ID", "Name", "Description", "Updated"},
			[][]string{{strconv.FormatInt(repo.ID, 10), repo.Name,
				truncate(repo.Description, 40), formatTime(repo.UpdatedAt)}})
	},
}

var repoDeleteCmd = &cobra.Command{
	Use:   "delete <repo-id>",
	Short: "Delete a repository and everything it owns (owner only)",
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
		if err := svc.DeleteRepository(repoID, repoOwner); err != nil {
			return err
		}
		fmt.Printf("Repository %d deleted\n", repoID)
		return nil
	},
}

var repoStatsCmd = &cobra.Command{
	Use:   "stats <repo-id>",
	Short: "Show file and version counts and total stored size",
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
		stats, err := svc.Stats(repoID)
		if err != nil {
			return err
		}
		lastActivity := "-"
		if stats.LastActivity != nil {
			lastActivity = formatTime(*stats.LastActivity)
		}
		return printOutput(stats,
			[]string{"Files", "Versions", "Size (bytes)", "Last Activity"},
			[][]string{{
				strconv.FormatInt(stats.TotalFiles, 10),
				strconv.FormatInt(stats.TotalVersions, 10),
				strconv.FormatInt(stats.TotalSize, 10),
				lastActivity,
			}})
	},
}

var repoActivityCmd = &cobra.Command{
	Use:   "activity <repo-id>",
	Short: "Show recent version activity, newest first",
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
		entries, err := svc.Activity(repoID, activityLimit)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.Filename,
				strconv.Itoa(e.VersionNumber),
				truncate(e.CommitMessage, 50),
				formatTime(e.CreatedAt),
			})
		}
		return printOutput(entries, []string{"File", "Version", "Message", "When"}, rows)
	},
}

func init() {
	repoCreateCmd.Flags().StringVar(&repoDescription, "description", "", "Repository description")
	repoCreateCmd.Flags().StringVar(&repoOwner, "owner", "", "Owner principal")
	repoListCmd.Flags().StringVar(&repoOwner, "owner", "", "Filter by owner principal")
	repoUpdateCmd.Flags().StringVar(&repoNewName, "name", "", "New repository name")
	repoUpdateCmd.Flags().StringVar(&repoDescription, "description", "", "New description")
	repoUpdateCmd.Flags().StringVar(&repoOwner, "owner", "", "Acting owner principal")
	repoDeleteCmd.Flags().StringVar(&repoOwner, "owner", "", "Acting owner principal")
	repoActivityCmd.Flags().IntVar(&activityLimit, "limit", 20, "Maximum entries to show")

	repoCmd.AddCommand(repoCreateCmd)
	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoGetCmd)
	repoCmd.AddCommand(repoUpdateCmd)
	repoCmd.AddCommand(repoDeleteCmd)
	repoCmd.AddCommand(repoStatsCmd)
	repoCmd.AddCommand(repoActivityCmd)
}
