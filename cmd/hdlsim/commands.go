// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/db47h/hdl"
	"github.com/db47h/hdl/vcd"
	"github.com/db47h/hdl/verilog"
	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func emitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit <design>",
		Short: "Write the Verilog netlist of a design",
		Long:  "Write the Verilog netlist of a design. Available designs: " + strings.Join(designNames(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := lookupDesign(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if fn := viper.GetString("emit.output"); fn != "" {
				f, err := os.Create(fn)
				if err != nil {
					return errors.WithStack(err)
				}
				defer f.Close()
				out = f
			}
			slog.Debug("emitting netlist", "design", args[0])
			return verilog.Write(out, d.root)
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	_ = viper.BindPFlag("emit.output", cmd.Flags().Lookup("output"))
	return cmd
}

func simCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim <design>",
		Short: "Simulate a design and print the final signal values as YAML",
		Long:  "Simulate a design and print the final signal values as YAML. Available designs: " + strings.Join(designNames(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := lookupDesign(args[0])
			if err != nil {
				return err
			}
			cfg := hdl.Config{
				SettleLimit: viper.GetInt("sim.settle-limit"),
				WatchLimit:  viper.GetUint64("sim.watch-limit"),
				Logger:      slog.Default(),
			}
			if fn := viper.GetString("sim.vcd"); fn != "" {
				f, err := os.Create(fn)
				if err != nil {
					return errors.WithStack(err)
				}
				defer f.Close()
				vw := vcd.NewWriter(f)
				vw.Timescale = viper.GetString("sim.timescale")
				cfg.Tracer = vw
			}
			c, err := hdl.Elaborate(d.root)
			if err != nil {
				return err
			}
			sim := hdl.NewSimulation(cfg)
			sim.AddClock(viper.GetUint64("sim.period"), d.clock)
			if d.bench != nil {
				sim.AddTestbench(args[0], d.bench)
			}
			res, err := sim.Run(cmd.Context(), c, viper.GetUint64("sim.time"))
			var serr *hdl.SimulationError
			if errors.As(err, &serr) {
				if b, yerr := yaml.Marshal(serr.Snapshot); yerr == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s", b)
				}
			}
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(struct {
				Time    uint64       `yaml:"time"`
				Signals hdl.Snapshot `yaml:"signals"`
			}{res.Time, res.Snapshot})
			if err != nil {
				return errors.Wrap(err, "marshal snapshot")
			}
			_, err = cmd.OutOrStdout().Write(b)
			return errors.WithStack(err)
		},
	}
	fs := cmd.Flags()
	fs.Uint64("time", 20000, "simulation time limit")
	fs.Uint64("period", 5, "clock half period")
	fs.Int("settle-limit", 0, "maximum settle passes per instant (0 for automatic)")
	fs.Uint64("watch-limit", 0, "default limit of watches (0 for the time limit only)")
	fs.String("vcd", "", "write a VCD trace to this file")
	fs.String("timescale", "1ns", "VCD time unit")
	for _, n := range []string{"time", "period", "settle-limit", "watch-limit", "vcd", "timescale"} {
		_ = viper.BindPFlag("sim."+n, fs.Lookup(n))
	}
	return cmd
}
