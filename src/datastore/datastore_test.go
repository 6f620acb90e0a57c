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
package datastore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"

	"github.com/yugabyte/pg-seldump/src/dbobject"
	"github.com/yugabyte/pg-seldump/src/dumprule"
	"github.com/yugabyte/pg-seldump/src/dumpwriter"
	"github.com/yugabyte/pg-seldump/src/query"
)

const TEST_SCHEME = "testfs"

// dirOpener serves every bucket from the same local directory.
type dirOpener struct {
	dir string
}

func (o *dirOpener) OpenBucketURL(ctx context.Context, u *url.URL) (*blob.Bucket, error) {
	return fileblob.OpenBucket(o.dir, nil)
}

var testOpener = &dirOpener{}

func TestMain(m *testing.M) {
	blob.DefaultURLMux().RegisterBucket(TEST_SCHEME, testOpener)
	blobSchemes = append(blobSchemes, TEST_SCHEME)
	os.Exit(m.Run())
}

func TestOpenOutputStdout(t *testing.T) {
	for _, target := range []string{"", "-"} {
		out, err := OpenOutput(context.Background(), target)
		require.NoError(t, err)
		assert.Same(t, os.Stdout, out)
	}
}

func TestOpenOutputLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.sql")
	out, err := OpenOutput(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, IsSeekable(out))
	assert.FileExists(t, path+".lck")

	_, err = io.WriteString(out, "hello\n")
	require.NoError(t, err)
	require.NoError(t, out.Close())
	assert.NoFileExists(t, path+".lck")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

func TestOpenOutputLocalBadDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nosuchdir", "dump.sql")
	_, err := OpenOutput(context.Background(), path)
	assert.Error(t, err)
}

func TestOpenOutputBlob(t *testing.T) {
	testOpener.dir = t.TempDir()
	out, err := OpenOutput(context.Background(), TEST_SCHEME+"://bucket/dumps/dump.sql")
	require.NoError(t, err)
	assert.False(t, IsSeekable(out))

	_, err = io.WriteString(out, "hello\n")
	require.NoError(t, err)
	require.NoError(t, out.Close())

	content, err := os.ReadFile(filepath.Join(testOpener.dir, "dumps", "dump.sql"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

type failingReader struct {
	partial string
}

func (r *failingReader) Copy(ctx context.Context, stmt string, w io.Writer) error {
	if _, err := io.WriteString(w, r.partial); err != nil {
		return err
	}
	return errors.New("connection reset")
}

func (r *failingReader) ObjAsString(c query.Composable) (string, error) {
	return query.AsString(c, query.PQQuoter{})
}

func (r *failingReader) GetSequenceValue(ctx context.Context, seq *dbobject.Sequence) (int64, error) {
	return 0, nil
}

func TestFailedDumpToBlobIsDiscarded(t *testing.T) {
	ctx := context.Background()
	testOpener.dir = t.TempDir()
	logger, _ := logtest.NewNullLogger()
	table := dbobject.NewTable(dbobject.KIND_TABLE, dbobject.ObjectInfo{OID: 1, Schema: "public", Name: "t"})
	require.NoError(t, table.AddColumn(dbobject.NewColumn("id", "integer")))

	out, err := OpenOutput(ctx, TEST_SCHEME+"://bucket/dump.sql")
	require.NoError(t, err)
	w := dumpwriter.NewDumpWriter(out, &failingReader{partial: "1\tpartial\n"}, logger)
	require.NoError(t, w.BeginDump(ctx))
	err = w.DumpTable(ctx, table, dumprule.NewActionOfType(table, dumprule.ACTION_DUMP))
	assert.ErrorContains(t, err, "failed to copy from table public.t: connection reset")
	require.NoError(t, w.Discard())

	bucket, err := fileblob.OpenBucket(testOpener.dir, nil)
	require.NoError(t, err)
	defer bucket.Close()
	exists, err := bucket.Exists(ctx, "dump.sql")
	require.NoError(t, err)
	assert.False(t, exists, "a failed dump should not be uploaded")
}

func TestFailedDumpToBlobKeepsPreviousObject(t *testing.T) {
	ctx := context.Background()
	testOpener.dir = t.TempDir()
	target := TEST_SCHEME + "://bucket/dump.sql"

	out, err := OpenOutput(ctx, target)
	require.NoError(t, err)
	_, err = io.WriteString(out, "good dump\n")
	require.NoError(t, err)
	require.NoError(t, out.Close())

	out, err = OpenOutput(ctx, target)
	require.NoError(t, err)
	_, err = io.WriteString(out, "truncated")
	require.NoError(t, err)
	require.NoError(t, out.(*blobOutput).Discard())

	content, err := os.ReadFile(filepath.Join(testOpener.dir, "dump.sql"))
	require.NoError(t, err)
	assert.Equal(t, "good dump\n", string(content))
}

func TestDiscardLocalOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.sql")
	out, err := OpenOutput(context.Background(), path)
	require.NoError(t, err)
	_, err = io.WriteString(out, "truncated")
	require.NoError(t, err)

	require.NoError(t, out.(*localOutput).Discard())
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, path+".lck")
}

func TestIsBlobURL(t *testing.T) {
	assert.True(t, IsBlobURL("s3://bucket/dump.sql"))
	assert.True(t, IsBlobURL("gs://bucket/dump.sql"))
	assert.True(t, IsBlobURL("azblob://container/dump.sql"))
	assert.False(t, IsBlobURL("dump.sql"))
	assert.False(t, IsBlobURL("/tmp/s3://dump.sql"))
	assert.False(t, IsBlobURL("ftp://host/dump.sql"))
}

func TestSplitBlobURL(t *testing.T) {
	bucket, key, err := splitBlobURL("s3://my-bucket/path/to/dump.sql?region=eu-west-1")
	require.NoError(t, err)
	assert.Equal(t, "s3://my-bucket?region=eu-west-1", bucket)
	assert.Equal(t, "path/to/dump.sql", key)

	for _, bad := range []string{"s3://my-bucket", "s3://my-bucket/", "s3:///dump.sql", "s3://b/dir/"} {
		_, _, err = splitBlobURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestIsSeekable(t *testing.T) {
	assert.False(t, IsSeekable(&bytes.Buffer{}))

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	assert.False(t, IsSeekable(w))
}
