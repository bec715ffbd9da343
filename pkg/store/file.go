package store

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

var _ Store = &File{}

// File stores the set as a pretty-printed JSON array, the same layout as an
// export file. Writes go to a temporary file that is renamed over the old
// one.
type File struct {
	mu       *sync.RWMutex
	filepath string
}

func NewFile(path string) *File {
	return &File{
		filepath: path,
		mu:       &sync.RWMutex{},
	}
}

// Path returns the file the store reads and writes.
func (f *File) Path() string {
	return f.filepath
}

func (f *File) GetAll(_ context.Context) ([]calculator.Calculator, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	b, err := f.read()
	if err != nil {
		return nil, wrapErr(BackendFile, "read", err)
	}
	if b == nil {
		return []calculator.Calculator{}, nil
	}

	var calcs []calculator.Calculator
	if err := json.Unmarshal(b, &calcs); err != nil {
		return nil, wrapErr(BackendFile, "read", pkgerrors.Wrapf(err, "failed to unmarshal calculators from file %s", f.filepath))
	}
	if calcs == nil {
		calcs = []calculator.Calculator{}
	}
	return calcs, nil
}

// read returns nil for a missing or blank file.
func (f *File) read() ([]byte, error) {
	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}
	if strings.TrimSpace(string(b)) == "" {
		return nil, nil
	}
	return b, nil
}

func (f *File) ReplaceAll(_ context.Context, calcs []calculator.Calculator) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := Encode(calcs)
	if err != nil {
		return wrapErr(BackendFile, "write", err)
	}
	return wrapErr(BackendFile, "write", f.write(data))
}

func (f *File) write(data []byte) error {
	dir := filepath.Dir(f.filepath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.filepath)+".*")
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to create temporary file in %s", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op after a successful rename.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return pkgerrors.Wrapf(err, "failed to write file %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return pkgerrors.Wrapf(err, "failed to sync file %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return pkgerrors.Wrapf(err, "failed to close file %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to chmod file %s", tmpName)
	}
	if err := os.Rename(tmpName, f.filepath); err != nil {
		return pkgerrors.Wrapf(err, "failed to rename %s to %s", tmpName, f.filepath)
	}
	return nil
}

func (f *File) Close() error {
	return nil
}

// Encode renders calcs the way the file backend stores them.
func Encode(calcs []calculator.Calculator) ([]byte, error) {
	data, err := calculator.EncodeExport(calcs)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to encode calculators")
	}
	return append(data, '\n'), nil
}
