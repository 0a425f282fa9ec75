// Command ssostr inspects, packs and benchmarks small-string-optimized
// strings.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/toolkits/pkg/logger"
	"golang.org/x/term"
)

// settings shared by every subcommand, filled in by PersistentPreRunE.
type settings struct {
	cfg   Config
	quiet bool
}

func newRootCmd() *cobra.Command {
	st := &settings{cfg: defaultConfig()}
	rootCmd := &cobra.Command{
		Use:   "ssostr",
		Short: "Small-string-optimized UTF-8 strings",
		Long: `ssostr works with strings that keep up to 15 bytes inline
and move to a heap buffer when they grow past that.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.setup(cmd)
		},
	}
	rootCmd.Version = Version

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "only log errors")
	rootCmd.PersistentFlags().String("config", "", "TOML config file")

	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newPackCmd(), newUnpackCmd())
	rootCmd.AddCommand(newBenchCmd(st))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func (st *settings) setup(cmd *cobra.Command) error {
	colorMode, err := cmd.Flags().GetString("color")
	if err != nil {
		return err
	}
	switch colorMode {
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("unsupported color mode %q (must be auto, on or off)", colorMode)
	}

	if st.quiet, err = cmd.Flags().GetBool("quiet"); err != nil {
		return err
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if st.cfg, err = loadConfig(path); err != nil {
		return err
	}
	return logger.Init(st.cfg.Logger.logConfig(st.quiet))
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func main() {
	err := newRootCmd().Execute()
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}
