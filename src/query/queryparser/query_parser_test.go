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
package queryparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateExpression(t *testing.T) {
	tests := []struct {
		expr  string
		valid bool
	}{
		{"'xxx'", true},
		{"md5(email) || '@example.com'", true},
		{"null", true},
		{"case when id > 10 then 'a' else 'b' end", true},
		{"1 -- a comment", true},
		{"'x' -- anonymised\n|| 'y'", true},
		{"", false},
		{"   ", false},
		{"'unterminated", false},
		{"1); drop table users; select (1", false},
		{"1 +", false},
	}
	for _, tt := range tests {
		err := ValidateExpression(tt.expr)
		if tt.valid {
			assert.NoError(t, err, "expression %q", tt.expr)
		} else {
			assert.Error(t, err, "expression %q", tt.expr)
		}
	}
}

func TestValidateCondition(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(ValidateCondition("data <= 'c'"))
	assert.NoError(ValidateCondition("created_at > now() - '1 month'::interval and not deleted"))
	assert.Error(ValidateCondition("where id = 1"))
	assert.Error(ValidateCondition("id = 1)"))
	assert.NoError(ValidateCondition("id > 10 -- recent rows only"))
	assert.NoError(ValidateCondition("id > 10 /* recent */ and not deleted"))
	assert.Error(ValidateCondition("id > 10 /* unterminated"))
}
