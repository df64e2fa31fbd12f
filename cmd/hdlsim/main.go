// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command hdlsim simulates the demo designs of package hwlib, or renders them
// as Verilog.
//
//	hdlsim emit counter > counter.v
//	hdlsim sim pwm --time 10000 --vcd pwm.vcd
//
// Flags can also be set from a YAML config file (--config) or from
// environment variables prefixed with HDLSIM_, like HDLSIM_SIM_TIME=500.
//
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

func init() {
	cobra.OnInitialize(initConfig)
}

// newRootCmd builds the command tree. Flags are bound to the global viper
// instance, so only the last tree built sees its flags.
//
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hdlsim",
		Short: "Simulate demo circuits or render them as Verilog",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging()
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.AddCommand(emitCmd(), simCmd())
	return cmd
}

func initConfig() {
	viper.SetEnvPrefix("HDLSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		slog.Error("cannot read config file", "file", cfgFile, "error", err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose || viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
