package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/davell/repopatch/internal/models"
	"github.com/davell/repopatch/internal/output"
	"github.com/davell/repopatch/internal/patch"
	"github.com/davell/repopatch/internal/resolve"
	"github.com/davell/repopatch/internal/watch"
)

var (
	previewSource string
	previewWatch  bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <patch-file>",
	Short: "Preview a unified diff against the selected source",
	Long: `Preview a unified diff against a source's file contents.

Each file the patch touches is resolved from the selected source (or
--source) and rendered with its hunks. Use '-' to read the patch from
stdin. With --watch the patch file is re-previewed whenever it changes,
until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return previewRun(args[0])
	},
}

func init() {
	previewCmd.Flags().StringVarP(&previewSource, "source", "s", "", "Source to resolve against (default: selection)")
	previewCmd.Flags().BoolVarP(&previewWatch, "watch", "w", false, "Re-preview when the patch file changes")
	rootCmd.AddCommand(previewCmd)
}

func previewRun(patchPath string) error {
	if previewWatch && patchPath == "-" {
		return fmt.Errorf("--watch needs a file path, not stdin")
	}

	ctx := context.Background()
	s, reg, err := loadRegistry(ctx)
	if err != nil {
		return err
	}
	src, err := resolveOrSelected(reg, previewSource)
	if err != nil {
		return err
	}
	client, err := getClient(ctx, s)
	if err != nil {
		return err
	}
	resolver := resolve.New(s, reg, client)

	if !previewWatch {
		return previewOnce(ctx, resolver, src, patchPath)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := previewOnce(ctx, resolver, src, patchPath); err != nil {
		ui.Error("%v", err)
	}
	ui.Info("Watching %s (ctrl-c to stop)", patchPath)

	quiet := time.Duration(viper.GetInt("preview.debounce_ms")) * time.Millisecond
	err = watch.File(ctx, patchPath, quiet, func() {
		fmt.Fprintln(ui.Out)
		if err := previewOnce(ctx, resolver, src, patchPath); err != nil {
			ui.Error("%v", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func previewOnce(ctx context.Context, resolver *resolve.Resolver, src *models.Source, patchPath string) error {
	patchText, err := readPatch(patchPath)
	if err != nil {
		return err
	}

	records, err := patch.Parse(patchText)
	if err != nil {
		return fmt.Errorf("parse patch: %w", err)
	}

	paths := patch.RequiredPaths(records)
	resolved := resolver.ResolveFiles(ctx, src.ID, paths)
	units := patch.BuildPreview(records, resolved)
	pv := patch.Render(units, resolver.Failures().Paths())

	printPreview(pv)
	return nil
}

// readPatch reads a patch from a file, or stdin when path is "-".
func readPatch(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func printPreview(pv *patch.Preview) {
	for i, block := range pv.Files {
		if i > 0 {
			fmt.Fprintln(ui.Out)
		}
		fmt.Fprintf(ui.Out, "%s", output.Cyan(block.Path))
		if block.Annotation != "" {
			fmt.Fprintf(ui.Out, "  %s", annotate(block.Kind, block.Annotation))
		}
		fmt.Fprintln(ui.Out)

		if block.Empty {
			fmt.Fprintf(ui.Out, "  %s\n", output.Dim("(no content changes)"))
			continue
		}
		for _, line := range block.Lines {
			fmt.Fprintf(ui.Out, "  %s\n", renderLine(line))
		}
	}

	if len(pv.Files) > 0 {
		fmt.Fprintln(ui.Out)
	}
	for _, p := range pv.Failures {
		ui.Warning("Fetch failed: %s", p)
	}

	switch pv.Status {
	case patch.StatusSuccess:
		ui.Success("Preview: %s", pv.StatusText)
	case patch.StatusEmpty:
		ui.Info("Preview: %s", pv.StatusText)
	case patch.StatusFetchFailures:
		ui.Warning("Preview: %s", pv.StatusText)
	case patch.StatusErrors:
		ui.Error("Preview: %s", pv.StatusText)
	}
}

func annotate(kind patch.AnnotationKind, note string) string {
	switch kind {
	case patch.AnnotationError:
		return output.Red("[" + note + "]")
	case patch.AnnotationWarning:
		return output.Yellow("[" + note + "]")
	default:
		return output.Dim("[" + note + "]")
	}
}

func renderLine(line patch.Line) string {
	switch line.Kind {
	case patch.LineAdd:
		return output.AddLine(line.Text)
	case patch.LineRemove:
		return output.RemoveLine(line.Text)
	case patch.LineNoNewline:
		return output.Dim(`\ ` + line.Text)
	default:
		return " " + line.Text
	}
}
