//go:build unit

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
	"bytes"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yugabyte/pg-seldump/src/config"
	"github.com/yugabyte/pg-seldump/src/constants"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.SetEnvPrefix(constants.ENV_PREFIX)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cmd := &cobra.Command{Use: "test"}
	registerFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestFlagsFromEnvironment(t *testing.T) {
	t.Setenv("PGSELDUMP_DSN", "host=db dbname=app")
	t.Setenv("PGSELDUMP_SCHEMA", "public,sales")
	t.Setenv("PGSELDUMP_DISABLE_PB", "true")
	t.Setenv("PGSELDUMP_OUTFILE", "from-env.sql")

	cmd := newTestCommand(t, "-o", "from-flag.sql")
	require.NoError(t, bindFlagsToViper(cmd))

	assert.Equal(t, "host=db dbname=app", dsn)
	assert.Equal(t, []string{"public", "sales"}, schemas)
	assert.True(t, disablePb)
	// The command line wins.
	assert.Equal(t, "from-flag.sql", outFile)
}

func TestFlagsFromConfigFile(t *testing.T) {
	cmd := newTestCommand(t)
	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(strings.NewReader("log-level: debug\ntest: true\n")))
	require.NoError(t, bindFlagsToViper(cmd))

	assert.Equal(t, config.DEBUG, config.LogLevel)
	assert.True(t, testMode)
	assert.Equal(t, constants.STDOUT, outFile)
}

func TestBadFlagFromEnvironment(t *testing.T) {
	t.Setenv("PGSELDUMP_TEST", "maybe")
	cmd := newTestCommand(t)
	err := bindFlagsToViper(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid value "maybe" for test`)
}

func TestRedactedArgs(t *testing.T) {
	args := []string{"pg-seldump", "--dsn", "host=x password=secret", "--dsn=postgres://me:secret@h/db", "rules.yaml"}
	assert.Equal(t, []string{
		"pg-seldump", "--dsn", "host=x password=XXXXX", "--dsn=postgres://me:XXXXX@h/db", "rules.yaml",
	}, redactedArgs(args))
	// The original is untouched.
	assert.Equal(t, "host=x password=secret", args[2])
}

func TestMyFormatter(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "table public.t1 refers to itself",
	}
	out, err := (&MyFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02 03:04:05 WARN table public.t1 refers to itself\n", string(out))
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)
	versionCmd.Run(versionCmd, nil)
	assert.True(t, strings.HasPrefix(buf.String(), "VERSION="+constants.VERSION+"\n"))
}
