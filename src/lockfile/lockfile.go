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
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/nightlyone/lockfile"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/pg-seldump/src/constants"
)

const LOCKFILE_SUFFIX = ".lck"

// Lockfile prevents two dumps from writing the same output file.
type Lockfile struct {
	target   string
	fpath    string
	cmdPID   int
	lockfile lockfile.Lockfile
}

// NewLockfile returns the lock guarding target, stored in "<target>.lck".
func NewLockfile(target string) (*Lockfile, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolving the path of %q: %w", target, err)
	}
	return &Lockfile{target: abs, fpath: abs + LOCKFILE_SUFFIX, cmdPID: -1}, nil
}

func (l *Lockfile) Path() string {
	return l.fpath
}

func (l *Lockfile) GetCmdPID() (int, error) {
	if l.cmdPID != -1 {
		return l.cmdPID, nil
	}

	bytes, err := os.ReadFile(l.fpath)
	if err != nil {
		return -1, fmt.Errorf("failed to read lockfile %q: %w", l.fpath, err)
	}
	l.cmdPID, err = strconv.Atoi(strings.Trim(string(bytes), " \n"))
	if err != nil {
		return -1, fmt.Errorf("failed to parse PID from lockfile %q: %w", l.fpath, err)
	}
	return l.cmdPID, nil
}

func (l *Lockfile) IsPIDActive() bool {
	pid, err := l.GetCmdPID()
	if err != nil {
		return false
	}

	proc, _ := os.FindProcess(pid) // Always succeeds on Unix systems

	// Signal 0 fails only if the process is not running.
	err = proc.Signal(syscall.Signal(0))
	if err != nil {
		log.Infof("process %d is not active", pid)
		return false
	}
	log.Infof("process %d is active", pid)
	return true
}

func (l *Lockfile) Lock() error {
	var err error
	l.lockfile, err = lockfile.New(l.fpath)
	if err != nil {
		return fmt.Errorf("failed to create lockfile %q: %w", l.fpath, err)
	}

	err = l.lockfile.TryLock()
	switch {
	case err == nil:
		log.Debugf("locked %q", l.fpath)
		return nil
	case err == lockfile.ErrBusy:
		pid, _ := l.GetCmdPID()
		return fmt.Errorf("another instance of %s (pid %d) is writing %q", constants.PRODUCT_NAME, pid, l.target)
	default:
		return fmt.Errorf("unable to lock %q: %w", l.target, err)
	}
}

func (l *Lockfile) Unlock() error {
	err := l.lockfile.Unlock()
	if err != nil {
		return fmt.Errorf("unable to unlock %q: %w", l.fpath, err)
	}
	return nil
}
