//----------------------------------------------------------------------
// This file is part of picohttp.
// Copyright (C) 2024-present Bernd Fix   >Y<
//
// picohttp is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// picohttp is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

// Picohttp brings up the network and runs HTTP requests on a host,
// the same way the firmware does on a Pico W.
//
// Usage:
//
//	picohttp [run] [flags]
//	picohttp get URL [flags]
//	picohttp post URL --data TEXT [flags]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/bfix/picohttp"
)

// set at build time
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "picohttp",
	Short: "Bring up the network and run HTTP requests",
	Long: `picohttp waits for a network interface to be connected and then
runs a plan of HTTP GET/POST requests, printing status and the first
1024 bytes of every response body.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPlan,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured request plan",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

var getCmd = &cobra.Command{
	Use:   "get URL",
	Short: "Issue a single GET request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingle(cmd, picohttp.Step{Method: "GET", URL: args[0]})
	},
}

var postCmd = &cobra.Command{
	Use:   "post URL",
	Short: "POST a text payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := cmd.Flags().GetString("data")
		if err != nil {
			return err
		}
		return runSingle(cmd, picohttp.Step{Method: "POST", URL: args[0], Body: data})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("picohttp %s\n", version)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "YAML configuration file")
	pf.StringP("iface", "i", "", "network interface (default: first usable)")
	pf.String("ssid", "", "network name")
	pf.String("passphrase", "", "network passphrase")
	pf.String("hostname", "", "hostname announced to the network")
	pf.String("ca-bundle", "", "PEM file with trust roots for HTTPS")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Duration("poll", 0, "interval between connection polls")
	pf.Duration("max-wait", 0, "maximum time to wait for the connection")
	pf.Duration("settle", 0, "delay before the first request")
	pf.Duration("timeout", 0, "per-request timeout (0 = none)")

	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().Duration("report", 0, "report IP configuration at this interval")
		cmd.Flags().Uint16("ninep-port", 0, "serve status namespace via 9P on this port")
	}
	postCmd.Flags().StringP("data", "d", "Hello world!", "payload")

	rootCmd.AddCommand(runCmd, getCmd, postCmd, versionCmd)
}

// setup loads the configuration for a command.
func setup(cmd *cobra.Command) (*picohttp.Config, picohttp.Device, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if err = applyFlags(cmd, cfg); err != nil {
		return nil, nil, err
	}
	iface, _ := cmd.Flags().GetString("iface")
	return cfg, picohttp.NewLinuxDevice(iface), nil
}

// runPlan executes the configured plan.
func runPlan(cmd *cobra.Command, _ []string) error {
	cfg, dev, err := setup(cmd)
	if err != nil {
		return err
	}
	return execute(cmd.Context(), dev, cfg, cmd.OutOrStdout())
}

// runSingle executes a plan of one step.
func runSingle(cmd *cobra.Command, step picohttp.Step) error {
	cfg, dev, err := setup(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("settle") {
		cfg.Settle = 0
	}
	cfg.Plan = picohttp.Plan{step}
	cfg.Report = 0
	cfg.NinePPort = 0
	return execute(cmd.Context(), dev, cfg, cmd.OutOrStdout())
}

// execute a configuration and print a summary.
func execute(ctx context.Context, dev picohttp.Device, cfg *picohttp.Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	level, err := picohttp.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := picohttp.NewLogger(dev.Console(), level)
	list, err := picohttp.Run(ctx, dev, cfg, nil, logger)
	printSummary(out, list)
	var serr *picohttp.StartupError
	if errors.As(err, &serr) {
		return fmt.Errorf("%w [%s]", err, picohttp.StatusText(serr.Status))
	}
	return err
}

// printSummary of plan results
func printSummary(out io.Writer, list []picohttp.Result) {
	for _, res := range list {
		switch {
		case res.Err != nil:
			color.New(color.FgRed).Fprintf(out, "FAIL %s\n", res.Err)
		case res.Exchange.Status >= 200 && res.Exchange.Status < 300:
			color.New(color.FgGreen).Fprintf(out, "OK   %s\n", res.Exchange)
		default:
			color.New(color.FgYellow).Fprintf(out, "WARN %s\n", res.Exchange)
		}
	}
}
