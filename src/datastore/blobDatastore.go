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
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/blob/azureblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
)

var blobSchemes = []string{s3blob.Scheme, gcsblob.Scheme, azureblob.Scheme}

func IsBlobURL(target string) bool {
	scheme, _, found := strings.Cut(target, "://")
	return found && lo.Contains(blobSchemes, scheme)
}

// blobOutput uploads the dump to an object of a bucket. It can't seek, so no
// size is measured.
type blobOutput struct {
	*blob.Writer
	bucket *blob.Bucket
	// cancelling the context of the writer before closing it drops the upload
	cancel context.CancelFunc
}

// splitBlobURL separates "s3://bucket/path/dump.sql?region=x" into the bucket
// URL "s3://bucket?region=x" and the key "path/dump.sql".
func splitBlobURL(target string) (string, string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", "", fmt.Errorf("invalid output URL %q: %w", target, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("invalid output URL %q: expected <scheme>://<bucket>/<object>", target)
	}
	bucketURL := url.URL{Scheme: u.Scheme, Host: u.Host, RawQuery: u.RawQuery}
	return bucketURL.String(), key, nil
}

func openBlobOutput(ctx context.Context, target string) (*blobOutput, error) {
	bucketURL, key, err := splitBlobURL(target)
	if err != nil {
		return nil, err
	}
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("opening bucket %q: %w", bucketURL, err)
	}
	wctx, cancel := context.WithCancel(ctx)
	w, err := bucket.NewWriter(wctx, key, &blob.WriterOptions{ContentType: "application/sql"})
	if err != nil {
		cancel()
		bucket.Close()
		return nil, fmt.Errorf("opening %q for writing: %w", target, err)
	}
	log.Infof("writing the dump to %q", target)
	return &blobOutput{Writer: w, bucket: bucket, cancel: cancel}, nil
}

// Close completes the upload.
func (o *blobOutput) Close() error {
	err := o.Writer.Close()
	o.cancel()
	if berr := o.bucket.Close(); err == nil {
		err = berr
	}
	return err
}

// Discard aborts the upload: the object is not created, or keeps its
// previous content.
func (o *blobOutput) Discard() error {
	o.cancel()
	if err := o.Writer.Close(); err != nil {
		log.Debugf("upload aborted: %s", err)
	}
	return o.bucket.Close()
}
