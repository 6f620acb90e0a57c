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
package constants

const (
	PRODUCT_NAME = "pg-seldump"
	VERSION      = "0.4.0"
	PROJECT_URL  = "https://github.com/yugabyte/pg-seldump"

	// viper looks for ~/.pg-seldump.yaml and PGSELDUMP_* variables.
	CONFIG_FILE_NAME = ".pg-seldump"
	ENV_PREFIX       = "PGSELDUMP"

	// Oldest server whose catalog queries are supported.
	MIN_SERVER_VERSION = "9.3"

	// Size comments carry a human readable suffix from this many bytes on.
	PRETTY_SIZE_THRESHOLD = 1024

	STDOUT = "-"
)

const (
	OBFUSCATE_STRING = "XXXXX"
)
