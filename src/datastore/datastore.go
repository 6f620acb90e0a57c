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
package datastore

import (
	"context"
	"io"
	"os"

	"github.com/yugabyte/pg-seldump/src/constants"
)

// OpenOutput opens the destination of a dump. target can be empty or "-" for
// the standard output, a bucket URL (s3://, gs://, azblob://) or a local
// file. Closing the standard output returned is up to the caller.
func OpenOutput(ctx context.Context, target string) (io.WriteCloser, error) {
	switch {
	case target == "" || target == constants.STDOUT:
		return os.Stdout, nil
	case IsBlobURL(target):
		return openBlobOutput(ctx, target)
	default:
		return openLocalOutput(target)
	}
}

// IsSeekable tells if the size of the data written to out can be measured.
func IsSeekable(out io.Writer) bool {
	seeker, ok := out.(io.Seeker)
	if !ok {
		return false
	}
	_, err := seeker.Seek(0, io.SeekCurrent)
	return err == nil
}
