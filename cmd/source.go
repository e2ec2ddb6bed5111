package cmd

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davell/repopatch/internal/ingest"
	"github.com/davell/repopatch/internal/models"
	"github.com/davell/repopatch/internal/output"
	"github.com/davell/repopatch/internal/registry"
	"github.com/davell/repopatch/internal/store"
	"github.com/davell/repopatch/internal/tree"
)

var (
	sourceArchive string
	sourceFolder  string
	sourceName    string
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage file sources",
	Long: `Manage registered file sources.

A source is either remote (a directory path on the repopatch server) or
local (an ingested zip archive or folder). Exactly one source is
selected at a time; preview and apply operate on the selection unless
--source says otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sourceListRun()
	},
}

var sourceAddCmd = &cobra.Command{
	Use:   "add [remote-path]",
	Short: "Register a remote directory, zip archive, or local folder",
	Long: `Register a new source and make it the selection.

With a positional argument the path is a directory on the repopatch
server; its tree is fetched immediately. With --archive or --folder the
files are ingested into the local content store instead and no server
is involved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case sourceArchive != "":
			return sourceAddLocalRun(sourceArchive, true)
		case sourceFolder != "":
			return sourceAddLocalRun(sourceFolder, false)
		case len(args) == 1:
			return sourceAddRemoteRun(args[0])
		default:
			return fmt.Errorf("provide a remote path, --archive, or --folder")
		}
	},
}

var sourceRemoveCmd = &cobra.Command{
	Use:     "remove <source>",
	Aliases: []string{"rm"},
	Short:   "Remove a source and its stored contents",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sourceRemoveRun(args[0])
	},
}

var sourceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sourceListRun()
	},
}

var sourceSelectCmd = &cobra.Command{
	Use:   "select <source>",
	Short: "Make a source the selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sourceSelectRun(args[0])
	},
}

var sourceRefreshCmd = &cobra.Command{
	Use:   "refresh [source]",
	Short: "Re-fetch a remote source's tree from the server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		return sourceRefreshRun(ref)
	},
}

var sourceTreeCmd = &cobra.Command{
	Use:   "tree [source]",
	Short: "Print a source's file tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		return sourceTreeRun(ref)
	},
}

func init() {
	sourceAddCmd.Flags().StringVar(&sourceArchive, "archive", "", "Ingest a zip archive as a local source")
	sourceAddCmd.Flags().StringVar(&sourceFolder, "folder", "", "Ingest a folder as a local source")
	sourceAddCmd.Flags().StringVar(&sourceName, "name", "", "Display name (default derived from the path)")

	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceSelectCmd)
	sourceCmd.AddCommand(sourceRefreshCmd)
	sourceCmd.AddCommand(sourceTreeCmd)
	rootCmd.AddCommand(sourceCmd)
}

func sourceAddRemoteRun(remotePath string) error {
	ctx := context.Background()
	s, reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}
	client, err := getClient(ctx, s)
	if err != nil {
		return err
	}

	name := sourceName
	if name == "" {
		name = path.Base(strings.TrimRight(remotePath, "/"))
	}

	src := &models.Source{
		Kind:        models.SourceKindRemote,
		RootPath:    remotePath,
		DisplayName: name,
	}

	// The source is registered even when the first fetch fails, with the
	// failure recorded; a later refresh can recover it.
	dir, fetchErr := client.Directory(ctx, remotePath, true)
	if fetchErr != nil {
		src.LastError = fetchErr.Error()
	} else {
		src.RootPath = dir.Root
		src.Tree = dir.Tree
	}

	if dryRun {
		ui.DryRunMsg("Would add remote source %q (%s)", name, src.RootPath)
		return fetchErr
	}

	if err := reg.Add(ctx, src); err != nil {
		return err
	}

	if fetchErr != nil {
		ui.Warning("Added %s, but the tree fetch failed: %v", name, fetchErr)
		return nil
	}
	ui.Success("Added remote source %s (%d files)", name, len(tree.Files(src.Tree)))
	return nil
}

func sourceAddLocalRun(fsPath string, isArchive bool) error {
	ctx := context.Background()
	s, reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}

	var (
		name    string
		entries []ingest.Entry
	)
	if isArchive {
		name, entries, err = ingest.Archive(fsPath)
	} else {
		name, entries, err = ingest.Folder(fsPath)
	}
	if err != nil {
		return err
	}
	if sourceName != "" {
		name = sourceName
	}

	if dryRun {
		ui.DryRunMsg("Would ingest %d files as local source %q", len(entries), name)
		return nil
	}

	src, conflicts, err := ingest.Register(ctx, s, reg, name, entries)
	if err != nil {
		return err
	}

	for _, c := range conflicts {
		ui.Warning("Skipped %s: %s", c.Path, c.String())
	}
	ui.Success("Added local source %s (%d files)", name, len(tree.Files(src.Tree)))
	return nil
}

func sourceRemoveRun(ref string) error {
	ctx := context.Background()
	_, reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}
	src, err := reg.Resolve(ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove source %s", src.DisplayName)
		return nil
	}

	if err := reg.Remove(ctx, src.ID); err != nil {
		return err
	}
	ui.Success("Removed %s", src.DisplayName)
	if sel := reg.Selected(); sel != nil && sel.ID != src.ID {
		ui.Info("Selection moved to %s", sel.DisplayName)
	}
	return nil
}

func sourceListRun() error {
	ctx := context.Background()
	_, reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}

	sources := reg.Sources()
	if len(sources) == 0 {
		ui.Info("No sources registered. Use 'repopatch source add' to get started.")
		return nil
	}

	table := ui.Table([]string{"", "ID", "Name", "Kind", "Root", "Status"})
	for _, src := range sources {
		marker := ""
		if src.ID == reg.SelectedID() {
			marker = "*"
		}
		status := "ok"
		if src.LastError != "" {
			status = output.Red("error: " + src.LastError)
		}
		table.Append([]string{
			marker,
			output.Dim(shortID(src.ID)),
			output.Cyan(src.DisplayName),
			string(src.Kind),
			src.RootPath,
			status,
		})
	}
	table.Render()
	return nil
}

func sourceSelectRun(ref string) error {
	ctx := context.Background()
	_, reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}
	src, err := reg.Resolve(ref)
	if err != nil {
		return err
	}
	if err := reg.Select(ctx, src.ID); err != nil {
		return err
	}
	ui.Success("Selected %s", src.DisplayName)
	return nil
}

func sourceRefreshRun(ref string) error {
	ctx := context.Background()
	s, reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}
	src, err := resolveOrSelected(reg, ref)
	if err != nil {
		return err
	}
	if !src.IsRemote() {
		return fmt.Errorf("%s is a local source; its contents never change after ingestion", src.DisplayName)
	}

	client, err := getClient(ctx, s)
	if err != nil {
		return err
	}

	dir, err := client.Directory(ctx, src.RootPath, true)
	if err != nil {
		src.LastError = err.Error()
		if uerr := reg.Update(ctx, src); uerr != nil {
			return uerr
		}
		return fmt.Errorf("refresh %s: %w", src.DisplayName, err)
	}

	src.RootPath = dir.Root
	src.Tree = dir.Tree
	src.LastError = ""
	if err := reg.Update(ctx, src); err != nil {
		return err
	}
	ui.Success("Refreshed %s (%d files)", src.DisplayName, len(tree.Files(src.Tree)))
	return nil
}

func sourceTreeRun(ref string) error {
	ctx := context.Background()
	s, reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}
	src, err := resolveOrSelected(reg, ref)
	if err != nil {
		return err
	}

	root, err := sourceTree(ctx, s, src)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(src.DisplayName))
	printTree(root, "  ")
	return nil
}

// sourceTree materializes a source's tree: local trees rebuild from the
// content store's keys, remote trees come from the server (cached).
func sourceTree(ctx context.Context, s store.Store, src *models.Source) (map[string]*models.TreeNode, error) {
	if src.Tree != nil {
		return src.Tree, nil
	}
	if src.Kind == models.SourceKindLocal {
		paths, err := s.ListFilePaths(ctx, src.ID)
		if err != nil {
			return nil, err
		}
		root, _ := tree.FromPaths(paths)
		src.Tree = root
		return root, nil
	}

	client, err := getClient(ctx, s)
	if err != nil {
		return nil, err
	}
	dir, err := client.Directory(ctx, src.RootPath, false)
	if err != nil {
		return nil, fmt.Errorf("fetch tree for %s: %w", src.DisplayName, err)
	}
	src.Tree = dir.Tree
	return dir.Tree, nil
}

func printTree(nodes map[string]*models.TreeNode, indent string) {
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	// Folders first, then files, each alphabetical.
	sort.Slice(names, func(i, j int) bool {
		a, b := nodes[names[i]], nodes[names[j]]
		if a.IsFolder() != b.IsFolder() {
			return a.IsFolder()
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		n := nodes[name]
		if n.IsFolder() {
			fmt.Fprintf(ui.Out, "%s%s/\n", indent, name)
			printTree(n.Children, indent+"  ")
		} else {
			fmt.Fprintf(ui.Out, "%s%s\n", indent, name)
		}
	}
}

// resolveOrSelected resolves a source reference, falling back to the
// selection when the reference is empty.
func resolveOrSelected(reg *registry.Registry, ref string) (*models.Source, error) {
	if ref != "" {
		return reg.Resolve(ref)
	}
	if src := reg.Selected(); src != nil {
		return src, nil
	}
	return nil, fmt.Errorf("no source selected")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
