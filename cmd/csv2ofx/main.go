package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"

	"github.com/reubano/csv2ofx/pkg/config"
	"github.com/reubano/csv2ofx/pkg/mappings"
	"github.com/reubano/csv2ofx/pkg/service"
)

var (
	cfgFile string
	output  string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "csv2ofx [flags] <input>...",
	Short: "Convert CSV and XLS statements to OFX or QIF",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level := log.InfoLevel
		if debug {
			level = log.DebugLevel
		}
		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			Prefix:          "csv2ofx",
			Level:           level,
		})

		cfg, err := config.Build(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		if debug {
			fmt.Fprintln(os.Stderr, pp.Sprint(cfg))
		}

		var out io.Writer = os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		processor := service.NewProcessor(cfg, logger)

		for _, arg := range args {
			matches, err := filepath.Glob(arg)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				return fmt.Errorf("no files found matching pattern %s", arg)
			}

			for _, match := range matches {
				info, err := os.Stat(match)
				if err != nil {
					logger.Warn("failed to stat file", "error", err, "file", match)
					continue
				}
				if info.IsDir() {
					logger.Warn("skipping directory", "dir", match)
					continue
				}
				if err := processor.ProcessFile(out, match); err != nil {
					return fmt.Errorf("converting %s: %w", match, err)
				}
			}
		}
		return nil
	},
}

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "List the builtin statement mappings",
	Run: func(_ *cobra.Command, _ []string) {
		for _, name := range mappings.Names() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.Flags().String("format", "ofx", "output format (ofx or qif)")
	rootCmd.Flags().StringP("mapping", "m", "default", "builtin mapping name")
	rootCmd.Flags().String("mapping-file", "", "custom YAML mapping file")
	rootCmd.Flags().String("def-type", "", "default account type")
	rootCmd.Flags().StringP("start", "s", "", "include transactions on or after this date")
	rootCmd.Flags().StringP("end", "e", "", "include transactions on or before this date")
	rootCmd.Flags().String("collapse", "", "column used to merge same-side split legs")
	rootCmd.Flags().String("split-account", "", "column holding the transfer destination")
	rootCmd.Flags().Int("chunksize", 0, "rows per processing chunk")
	rootCmd.Flags().Bool("ms-money", false, "emit MS Money compatible output")
	rootCmd.Flags().Bool("strict-balance", false, "fail when no ending balance can be determined")
	rootCmd.Flags().StringP("language", "l", "", "OFX language code")
	rootCmd.Flags().String("date-format", "", "QIF date layout")
	rootCmd.Flags().String("encoding", "", "input charset for XLS files")

	rootCmd.AddCommand(mappingsCmd)
}

func main() {
	_ = gotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
