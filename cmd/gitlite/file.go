package main

import (
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/gitlite/gitlite/pkg/vcs"
)

var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Manage files and their versions",
}

var (
	fileContent     string
	fileContentPath string
	fileMessage     string
	fileBranch      string
	diffMode        string
)

// readBlob builds the content payload from --content or --content-file.
// File contents that are not valid UTF-8 are stored as binary.
func readBlob() (vcs.Blob, error) {
	if fileContent != "" && fileContentPath != "" {
		return vcs.Blob{}, fmt.Errorf("--content and --content-file are mutually exclusive")
	}
	if fileContentPath != "" {
		data, err := os.ReadFile(fileContentPath)
		if err != nil {
			return vcs.Blob{}, fmt.Errorf("read content file: %w", err)
		}
		if utf8.Valid(data) {
			return vcs.Blob{Text: string(data)}, nil
		}
		return vcs.Blob{Binary: data}, nil
	}
	return vcs.Blob{Text: fileContent}, nil
}

var fileCreateCmd = &cobra.Command{
	Use:   "create <repo-id> <filename>",
	Short: "Create a file, committing version 1 when content is given",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		blob, err := readBlob()
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		file, err := svc.CreateFile(repoID, args[1], blob, fileMessage, fileBranch)
		if err != nil {
			return err
		}
		return printOutput(file,
			[]string{"ID", "Filename", "Version", "Created"},
			[][]string{{strconv.FormatInt(file.ID, 10), file.Filename,
				strconv.Itoa(file.CurrentVersion), formatTime(file.CreatedAt)}})
	},
}

var fileGetCmd = &cobra.Command{
	Use:   "get <repo-id> <file-id>",
	Short: "Show a file with the content its branch points at",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		fileID, err := parseID(args[1], "file id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		file, err := svc.GetFile(repoID, fileID, fileBranch)
		if err != nil {
			return err
		}
		return printOutput(file,
			[]string{"ID", "Filename", "Version", "MIME", "Size"},
			[][]string{{strconv.FormatInt(file.ID, 10), file.Filename,
				strconv.Itoa(file.VersionNumber), file.MimeType,
				strconv.FormatInt(file.FileSize, 10)}})
	},
}

var fileCatCmd = &cobra.Command{
	Use:   "cat <repo-id> <file-id>",
	Short: "Print the file's content as its branch sees it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		fileID, err := parseID(args[1], "file id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		file, err := svc.GetFile(repoID, fileID, fileBranch)
		if err != nil {
			return err
		}
		if len(file.ContentBinary) > 0 {
			_, err = os.Stdout.Write(file.ContentBinary)
			return err
		}
		fmt.Print(file.ContentText)
		return nil
	},
}

var fileListCmd = &cobra.Command{
	Use:   "list <repo-id>",
	Short: "List files, optionally scoped to a branch's pointer set",
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
		files, err := svc.ListFiles(repoID, fileBranch)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(files))
		for _, f := range files {
			rows = append(rows, []string{
				strconv.FormatInt(f.ID, 10), f.Filename,
				strconv.Itoa(f.CurrentVersion), formatTime(f.UpdatedAt),
			})
		}
		return printOutput(files, []string{"ID", "Filename", "Head", "Updated"}, rows)
	},
}

var fileUpdateCmd = &cobra.Command{
	Use:   "update <repo-id> <file-id>",
	Short: "Commit a new version and move the branch pointer onto it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		fileID, err := parseID(args[1], "file id")
		if err != nil {
			return err
		}
		blob, err := readBlob()
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		file, err := svc.UpdateFile(repoID, fileID, blob, fileMessage, fileBranch)
		if err != nil {
			return err
		}
		return printOutput(file,
			[]string{"ID", "Filename", "Version", "Size"},
			[][]string{{strconv.FormatInt(file.ID, 10), file.Filename,
				strconv.Itoa(file.VersionNumber), strconv.FormatInt(file.FileSize, 10)}})
	},
}

var fileDeleteCmd = &cobra.Command{
	Use:   "delete <repo-id> <file-id>",
	Short: "Delete a file with all its versions and pointers",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		fileID, err := parseID(args[1], "file id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		if err := svc.DeleteFile(repoID, fileID); err != nil {
			return err
		}
		fmt.Printf("File %d deleted\n", fileID)
		return nil
	},
}

var fileVersionsCmd = &cobra.Command{
	Use:   "versions <repo-id> <file-id>",
	Short: "List a file's versions, newest first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		fileID, err := parseID(args[1], "file id")
		if err != nil {
			return err
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		versions, err := svc.ListVersions(repoID, fileID, fileBranch)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(versions))
		for _, v := range versions {
			rows = append(rows, []string{
				strconv.Itoa(v.VersionNumber),
				truncate(v.CommitMessage, 50),
				truncate(v.ContentHash, 12),
				strconv.FormatInt(v.FileSize, 10),
				formatTime(v.CreatedAt),
			})
		}
		return printOutput(versions,
			[]string{"Version", "Message", "Hash", "Size", "Created"}, rows)
	},
}

var fileDiffCmd = &cobra.Command{
	Use:   "diff <repo-id> <file-id> <version1> <version2>",
	Short: "Compare two text versions of one file",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoID, err := parseID(args[0], "repository id")
		if err != nil {
			return err
		}
		fileID, err := parseID(args[1], "file id")
		if err != nil {
			return err
		}
		v1, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[2])
		}
		v2, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[3])
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		result, err := svc.DiffVersions(repoID, fileID, v1, v2)
		if err != nil {
			return err
		}
		switch diffMode {
		case "unified", "":
			fmt.Println(result.Unified)
			return nil
		case "side-by-side":
			return printJSON(os.Stdout, result.SideBySide)
		case "compact":
			return printJSON(os.Stdout, result.Compact)
		case "full":
			return printJSON(os.Stdout, result)
		default:
			return fmt.Errorf("unsupported diff mode %q (supported: unified, side-by-side, compact, full)", diffMode)
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{fileCreateCmd, fileUpdateCmd} {
		c.Flags().StringVar(&fileContent, "content", "", "Inline text content")
		c.Flags().StringVar(&fileContentPath, "content-file", "", "Path to a file holding the content")
		c.Flags().StringVar(&fileMessage, "message", "", "Commit message")
	}
	for _, c := range []*cobra.Command{fileCreateCmd, fileGetCmd, fileCatCmd, fileListCmd, fileUpdateCmd, fileVersionsCmd} {
		c.Flags().StringVar(&fileBranch, "branch", "", "Branch name (default branch when empty)")
	}
	fileDiffCmd.Flags().StringVar(&diffMode, "mode", "unified", "Diff rendering: unified, side-by-side, compact, full")

	fileCmd.AddCommand(fileCreateCmd)
	fileCmd.AddCommand(fileGetCmd)
	fileCmd.AddCommand(fileCatCmd)
	fileCmd.AddCommand(fileListCmd)
	fileCmd.AddCommand(fileUpdateCmd)
	fileCmd.AddCommand(fileDeleteCmd)
	fileCmd.AddCommand(fileVersionsCmd)
	fileCmd.AddCommand(fileDiffCmd)
}
