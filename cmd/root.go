/*
Copyright (c) YugabyteDB, Inc.

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

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/yugabyte/pg-seldump/src/config"
	"github.com/yugabyte/pg-seldump/src/constants"
	"github.com/yugabyte/pg-seldump/src/utils"
)

var (
	cfgFile   string
	dsn       string
	outFile   string
	schemas   []string
	testMode  bool
	quiet     bool
	verbose   bool
	logFile   string
	disablePb bool
)

var rootCmd = &cobra.Command{
	Use:   constants.PRODUCT_NAME + " [flags] CONFIG...",
	Short: "Dump a selection of the data of a PostgreSQL database",
	Long: `Dump a selection of the data of a PostgreSQL database as a SQL script.
The objects to dump, and how, are chosen by the rules of the CONFIG files.
Refer to ` + constants.PROJECT_URL + ` for the format of the rules.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlagsToViper(cmd); err != nil {
			return err
		}
		if err := config.ApplyVerbosity(quiet, verbose); err != nil {
			return err
		}
		if err := config.ValidateLogLevel(); err != nil {
			return err
		}
		return InitLogging(logFile)
	},

	Run: func(cmd *cobra.Command, args []string) {
		err := dumpDatabase(cmd.Context(), args)
		if err != nil {
			utils.ErrExit("%s", err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		utils.ErrExit("%s", err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	registerFlags(rootCmd)
}

func registerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("file with the default value of the flags (default $HOME/%s.yaml)", constants.CONFIG_FILE_NAME))

	cmd.PersistentFlags().StringVar(&config.LogLevel, "log-level", config.INFO,
		"log level for the messages. Accepted values: (trace, debug, info, warn, error, fatal, panic)")

	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"only log warnings and errors")

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"log debug messages too")

	cmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"also write the log messages to this file, rotating it when it grows")

	cmd.Flags().StringVar(&dsn, "dsn", "",
		fmt.Sprintf("connection string or URL of the database to dump (env %s_DSN)", constants.ENV_PREFIX))

	cmd.Flags().StringVarP(&outFile, "outfile", "o", constants.STDOUT,
		"file or bucket URL (s3://, gs://, azblob://) to write the dump to")

	cmd.Flags().StringSliceVarP(&schemas, "schema", "n", nil,
		"only consider the objects of this schema (can be repeated)")

	cmd.Flags().BoolVar(&testMode, "test", false,
		"plan the dump and log what would be dumped, writing nothing")

	cmd.Flags().BoolVar(&disablePb, "disable-pb", !term.IsTerminal(int(os.Stderr.Fd())),
		"disable the progress bar (default true if stderr is not a terminal)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(constants.CONFIG_FILE_NAME)
	}

	viper.SetEnvPrefix(constants.ENV_PREFIX)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			utils.ErrExit("failed to read config file %q: %s", cfgFile, err)
		}
	}
}

// bindFlagsToViper sets the flags not given on the command line from the
// environment or the config file.
func bindFlagsToViper(cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed || f.Name == "config" {
			return
		}
		if err := viper.BindEnv(f.Name); err != nil {
			bindErr = err
			return
		}
		if !viper.IsSet(f.Name) {
			return
		}
		var val string
		if f.Value.Type() == "stringSlice" {
			val = strings.Join(viper.GetStringSlice(f.Name), ",")
		} else {
			val = viper.GetString(f.Name)
		}
		if err := cmd.Flags().Set(f.Name, val); err != nil {
			bindErr = fmt.Errorf("invalid value %q for %s: %w", val, f.Name, err)
		}
	})
	return bindErr
}
