package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/axonops/vectorcom/internal/config"
	"github.com/axonops/vectorcom/pkg/canoe"
)

var (
	version = "dev"
	cfgFile string
	verbose bool
	debug   bool
	timeout int
	output  string
	logger  *logrus.Logger
	cfg     *config.Config
	logFile io.Closer
)

func init() {
	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	err := rootCmd.Execute()
	if logFile != nil {
		logFile.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vectorcom",
	Short: "Drive Vector CANoe through its COM automation interface",
	Long: `vectorcom controls a running or newly started Vector CANoe instance through
the CANoe.Application COM server.

It can:
- Print the application, configuration and test tree as YAML or JSON
- Open configurations
- Start and stop the measurement
- List and run test configurations`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("timeout") {
			loaded.Events.TimeoutSecs = timeout
			if err := loaded.Validate(); err != nil {
				return err
			}
		}
		cfg = loaded

		closer, err := configureLogger(logger, cfg.Logging)
		if err != nil {
			return err
		}
		logFile = closer

		// Set log level based on flags
		if debug {
			logger.SetLevel(logrus.DebugLevel)
		} else if verbose {
			logger.SetLevel(logrus.InfoLevel)
		}
		return nil
	},
}

// configureLogger applies the logging section of the configuration. The returned
// closer is non-nil when logs go to a file.
func configureLogger(l *logrus.Logger, lc config.LoggingConfig) (io.Closer, error) {
	level, err := logrus.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	l.SetLevel(level)

	if strings.EqualFold(lc.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch lc.Output {
	case "stdout":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(lc.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", lc.Output, err)
		}
		l.SetOutput(f)
		return f, nil
	}
	return nil, nil
}

// withApplication connects to CANoe for the duration of fn. Ctrl+C cancels any
// pending wait.
func withApplication(cmd *cobra.Command, fn func(ctx context.Context, app *canoe.Application) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	app, err := canoe.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: search ./configs, . and %ProgramData%\\vectorcom)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().IntVar(&timeout, "timeout", 0, "seconds to wait for CANoe events, 0 waits forever")

	// Add subcommands
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(measurementCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(quitCmd)

	infoCmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml|json)")
	testListCmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml|json)")
	measurementStatusCmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml|json)")

	openCmd.Flags().Bool("auto-save", false, "save the current configuration before opening")
	openCmd.Flags().Bool("prompt-user", false, "let CANoe ask before discarding unsaved changes")

	testRunCmd.Flags().Bool("start-measurement", false, "start the measurement before the test and stop it afterwards")
}
