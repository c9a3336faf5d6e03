/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	profiler interface{ Stop() }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gosfc",
	Short: "Space filling curve orderings of unstructured mesh snapshots",
	Long: `
Reads a series of mesh snapshots, connects the points, and traverses them along several space filling
curves so the field data can be fed to one dimensional convolutional networks.

gosfc order -I params.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		if viper.GetBool("verbose") {
			loggerFromContext(cmd.Context()).SetLevel(log.DebugLevel)
		}
		switch p := strings.ToLower(viper.GetString("profile")); p {
		case "":
		case "cpu":
			profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet)
		case "mem":
			profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet)
		default:
			err = fmt.Errorf("unknown profile %q, use cpu or mem", p)
		}
		return
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		stopProfiler()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx := withLogger(context.Background(), newLogger(os.Stderr, log.InfoLevel))
	if err := execute(ctx, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// execute runs the command line and stops a running profiler whether or not the command failed
func execute(ctx context.Context, args []string) error {
	defer stopProfiler()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func stopProfiler() {
	if profiler != nil {
		profiler.Stop()
		profiler = nil
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gosfc.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().String("profile", "", "write a cpu or mem profile to the current directory")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		// Search config in home directory with name ".gosfc" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".gosfc")
	}
	viper.SetEnvPrefix("gosfc")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
