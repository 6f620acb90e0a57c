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
package srcdb

import (
	"net/url"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/yugabyte/pg-seldump/src/constants"
)

var kvPasswordRegexp = regexp2.MustCompile(`(\bpassword\s*=\s*)(?:'(?:[^'\\]|\\.)*'|\S+)`, regexp2.IgnoreCase)

// RedactDSN hides the password of a connection string, either in URL or in
// key=value form.
func RedactDSN(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return constants.OBFUSCATE_STRING
		}
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), constants.OBFUSCATE_STRING)
		}
		q := u.Query()
		if q.Has("password") {
			q.Set("password", constants.OBFUSCATE_STRING)
			u.RawQuery = q.Encode()
		}
		return u.String()
	}
	redacted, err := kvPasswordRegexp.Replace(dsn, "${1}"+constants.OBFUSCATE_STRING, -1, -1)
	if err != nil {
		return constants.OBFUSCATE_STRING
	}
	return redacted
}
