package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"audiobaked/internal/app"
)

func newVersionCommand(out io.Writer, flags *rootFlags) *cobra.Command {
	var checkDeps bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information and, with --check, external dependency status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(out, "audiobaked %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			if !checkDeps {
				return nil
			}

			cfg, zapLogger, err := loadRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer zapLogger.Sync() //nolint:errcheck

			statuses := app.NewApplication(cfg, zapLogger).CheckDependencies()
			fmt.Fprintln(out, renderDependencyTable(statuses))
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkDeps, "check", false, "Probe ffmpeg, the speech engine, GPU and credentials")
	return cmd
}

func renderDependencyTable(statuses []app.DependencyStatus) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		status := "ok"
		if s.Err != nil {
			status = s.Err.Error()
		}
		rows = append(rows, []string{s.Name, s.Detail, status})
	}
	return renderTable([]string{"Dependency", "Detail", "Status"}, rows, nil)
}
