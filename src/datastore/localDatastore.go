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
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/pg-seldump/src/lockfile"
)

// localOutput is a file locked for the duration of the dump.
type localOutput struct {
	*os.File
	lock *lockfile.Lockfile
}

func openLocalOutput(path string) (*localOutput, error) {
	lock, err := lockfile.NewLockfile(path)
	if err != nil {
		return nil, err
	}
	if err = lock.Lock(); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		if uerr := lock.Unlock(); uerr != nil {
			log.Warnf("%s", uerr)
		}
		return nil, fmt.Errorf("opening the output file: %w", err)
	}
	log.Infof("writing the dump to %q", path)
	return &localOutput{File: f, lock: lock}, nil
}

// Discard removes the partial file.
func (o *localOutput) Discard() error {
	err := o.File.Close()
	if rerr := os.Remove(o.Name()); err == nil {
		err = rerr
	}
	if uerr := o.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

func (o *localOutput) Close() error {
	err := o.File.Close()
	if uerr := o.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}
