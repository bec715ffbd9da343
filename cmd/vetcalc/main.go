package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/vetcalc/pkg/client"
	"github.com/charlie0129/vetcalc/pkg/config"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/vetcalc.sock"
	configPath     = config.DefaultPath
)

var (
	gCatalog      = "Catalog:"
	gAuthoring    = "Authoring:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gCatalog,
		gAuthoring,
		gAdvanced,
	}
)

var apiClient = client.NewClient(unixSocketPath)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: vetcalc daemon is not running")
		fmt.Fprintln(os.Stderr, "Start it with 'vetcalc daemon', or use 'vetcalc eval' to run a formula without it.")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or reinstall the daemon with the '--allow-non-root-access' flag to grant permissions to your user")
	}
}

func main() {
	// vetcalc does not need many CPUs.
	if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(2)
	}

	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vetcalc",
		Short: "vetcalc is a catalog of veterinary calculators",
		Long: `vetcalc is a catalog of veterinary calculators.

Built-in calculators cover anesthesia, dosing, fluids, electrolytes, nutrition
and more. Custom calculators are small formulas you author yourself; the daemon
keeps them and serves the catalog to this command line.

Website: https://github.com/charlie0129/vetcalc
Report issues: https://github.com/charlie0129/vetcalc/issues`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)

			// Commands that never talk to the daemon skip the version check.
			if cmd.Annotations[annotationOffline] != "" {
				return nil
			}

			if clientVersion, daemonVersion, err := getVersion(); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. Calculators and results may differ from what this client expects.")
				}
			} else if errors.Is(err, client.ErrNotFound) {
				logrus.Error("vetcalc daemon is too old to report its version.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "vetcalc daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewListCommand(),
		NewShowCommand(),
		NewGroupsCommand(),
		NewCalcCommand(),
		NewSelectCommand(),
		NewAddCommand(),
		NewDeleteCommand(),
		NewImportCommand(),
		NewExportCommand(),
		NewEvalCommand(),
		NewEventsCommand(),
		NewBackupCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
