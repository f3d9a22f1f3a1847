package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/axonops/vectorcom/pkg/canoe"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the application and the loaded configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(ctx context.Context, app *canoe.Application) error {
			info, err := app.Describe()
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, info)
		})
	},
}

var openCmd = &cobra.Command{
	Use:   "open <path>",
	Short: "Open a CANoe configuration",
	Long: `Open a CANoe configuration and wait until CANoe reports it loaded.

--prompt-user is passed together with --auto-save, so setting it alone
opens without saving the current configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []canoe.OpenOption
		if cmd.Flags().Changed("auto-save") {
			autoSave, _ := cmd.Flags().GetBool("auto-save")
			opts = append(opts, canoe.WithAutoSave(autoSave))
		}
		if cmd.Flags().Changed("prompt-user") {
			promptUser, _ := cmd.Flags().GetBool("prompt-user")
			opts = append(opts, canoe.WithPromptUser(promptUser))
		}

		return withApplication(cmd, func(ctx context.Context, app *canoe.Application) error {
			if err := app.Open(ctx, args[0], opts...); err != nil {
				return err
			}
			logger.Infof("Opened configuration: %s", args[0])
			return nil
		})
	},
}

var measurementCmd = &cobra.Command{
	Use:   "measurement",
	Short: "Control the CANoe measurement",
}

var measurementStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the measurement and wait until it runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMeasurement(cmd, func(ctx context.Context, m *canoe.Measurement) error {
			return m.Start(ctx)
		})
	},
}

var measurementStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the measurement and wait until it stopped",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMeasurement(cmd, func(ctx context.Context, m *canoe.Measurement) error {
			return m.StopEx(ctx)
		})
	},
}

// MeasurementStatus is printed by "measurement status"
type MeasurementStatus struct {
	Running          bool `json:"running" yaml:"running"`
	MeasurementIndex int  `json:"measurement_index" yaml:"measurement_index"`
	AnimationDelay   int  `json:"animation_delay" yaml:"animation_delay"`
}

var measurementStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the measurement is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMeasurement(cmd, func(ctx context.Context, m *canoe.Measurement) error {
			var status MeasurementStatus
			var err error
			if status.Running, err = m.Running(); err != nil {
				return err
			}
			if status.MeasurementIndex, err = m.MeasurementIndex(); err != nil {
				return err
			}
			if status.AnimationDelay, err = m.AnimationDelay(); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, status)
		})
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "List and run test configurations",
}

// TestConfigurationSummary is one row of "test list"
type TestConfigurationSummary struct {
	Index   int    `json:"index" yaml:"index"`
	Name    string `json:"name" yaml:"name"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Verdict string `json:"verdict" yaml:"verdict"`
}

var testListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the test configurations of the loaded configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTestConfigurations(cmd, func(ctx context.Context, _ *canoe.Application, tcs *canoe.TestConfigurations) error {
			all, err := tcs.All()
			if err != nil {
				return err
			}
			defer func() {
				for _, tc := range all {
					tc.Release()
				}
			}()

			summaries := make([]TestConfigurationSummary, 0, len(all))
			for i, tc := range all {
				s, err := summarize(i+1, tc)
				if err != nil {
					return err
				}
				summaries = append(summaries, s)
			}
			return writeOutput(cmd.OutOrStdout(), output, summaries)
		})
	},
}

var testRunCmd = &cobra.Command{
	Use:   "run <name|index>",
	Short: "Run a test configuration and wait for its verdict",
	Long: `Run a test configuration, selected by name or by its 1-based index, and wait
until it stops. The command fails unless the verdict is Passed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startMeasurement, _ := cmd.Flags().GetBool("start-measurement")

		return withTestConfigurations(cmd, func(ctx context.Context, app *canoe.Application, tcs *canoe.TestConfigurations) error {
			tc, err := selectTestConfiguration(tcs, args[0])
			if err != nil {
				return err
			}
			defer tc.Release()

			if startMeasurement {
				m, err := app.Measurement()
				if err != nil {
					return err
				}
				defer m.Release()
				if err := m.Start(ctx); err != nil {
					return err
				}
				defer func() {
					if err := m.StopEx(ctx); err != nil {
						logger.WithError(err).Warn("Failed to stop measurement")
					}
				}()
			}

			verdict, reason, err := tc.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", args[0], verdict, reason)
			if verdict != canoe.VerdictPassed {
				return fmt.Errorf("test configuration %s finished with verdict %s", args[0], verdict)
			}
			return nil
		})
	},
}

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Quit CANoe",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(ctx context.Context, app *canoe.Application) error {
			return app.Quit(ctx)
		})
	},
}

func init() {
	measurementCmd.AddCommand(measurementStartCmd)
	measurementCmd.AddCommand(measurementStopCmd)
	measurementCmd.AddCommand(measurementStatusCmd)

	testCmd.AddCommand(testListCmd)
	testCmd.AddCommand(testRunCmd)
}

func withMeasurement(cmd *cobra.Command, fn func(ctx context.Context, m *canoe.Measurement) error) error {
	return withApplication(cmd, func(ctx context.Context, app *canoe.Application) error {
		m, err := app.Measurement()
		if err != nil {
			return err
		}
		defer m.Release()
		return fn(ctx, m)
	})
}

func withTestConfigurations(cmd *cobra.Command, fn func(ctx context.Context, app *canoe.Application, tcs *canoe.TestConfigurations) error) error {
	return withApplication(cmd, func(ctx context.Context, app *canoe.Application) error {
		c, err := app.Configuration()
		if err != nil {
			return err
		}
		defer c.Release()

		tcs, err := c.TestConfigurations()
		if err != nil {
			return err
		}
		defer tcs.Release()
		return fn(ctx, app, tcs)
	})
}

// selectTestConfiguration resolves a 1-based index or a name
func selectTestConfiguration(tcs *canoe.TestConfigurations, selector string) (*canoe.TestConfiguration, error) {
	if index, err := strconv.Atoi(selector); err == nil {
		count, err := tcs.Count()
		if err != nil {
			return nil, err
		}
		if index < 1 || index > count {
			return nil, fmt.Errorf("test configuration index %d out of range 1..%d", index, count)
		}
		return tcs.Item(index)
	}
	return tcs.ByName(selector)
}

func summarize(index int, tc *canoe.TestConfiguration) (TestConfigurationSummary, error) {
	s := TestConfigurationSummary{Index: index}
	var err error
	if s.Name, err = tc.Name(); err != nil {
		return s, err
	}
	if s.Enabled, err = tc.Enabled(); err != nil {
		return s, err
	}
	verdict, err := tc.Verdict()
	if err != nil {
		return s, err
	}
	s.Verdict = verdict.String()
	return s, nil
}

// writeOutput renders v as YAML or indented JSON
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
