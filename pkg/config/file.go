package config

import (
	"encoding/json"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/vetcalc/pkg/store"
	"github.com/charlie0129/vetcalc/pkg/utils/ptr"
)

const DefaultPath = "/etc/vetcalc.json"

var (
	defaultFileConfig = &RawFileConfig{
		StoreBackend:       ptr.To(string(store.BackendFile)),
		AllowNonRootAccess: ptr.To(false),
		ListenAddress:      ptr.To(""),
		Metrics:            ptr.To(true),
		// Backups are off until a schedule is given.
		BackupSchedule: ptr.To(""),
		BackupDir:      ptr.To("/var/lib/vetcalc/backups"),
		WatchStore:     ptr.To(false),
	}

	// defaultStorePaths depend on the backend, so they are resolved when
	// StorePath is read.
	defaultStorePaths = map[store.Backend]string{
		store.BackendFile:   "/var/lib/vetcalc/calculators.json",
		store.BackendBadger: "/var/lib/vetcalc/badger",
		store.BackendSQLite: "/var/lib/vetcalc/calculators.db",
		store.BackendMemory: "",
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	StoreBackend       *string `json:"storeBackend,omitempty"`
	StorePath          *string `json:"storePath,omitempty"`
	AllowNonRootAccess *bool   `json:"allowNonRootAccess,omitempty"`
	ListenAddress      *string `json:"listenAddress,omitempty"`
	Metrics            *bool   `json:"metrics,omitempty"`
	BackupSchedule     *string `json:"backupSchedule,omitempty"`
	BackupDir          *string `json:"backupDir,omitempty"`
	WatchStore         *bool   `json:"watchStore,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		StoreBackend:       ptr.To(c.StoreBackend()),
		StorePath:          ptr.To(c.StorePath()),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
		ListenAddress:      ptr.To(c.ListenAddress()),
		Metrics:            ptr.To(c.Metrics()),
		BackupSchedule:     ptr.To(c.BackupSchedule()),
		BackupDir:          ptr.To(c.BackupDir()),
		WatchStore:         ptr.To(c.WatchStore()),
	}

	return rawConfig, nil
}

// Validate checks the values that cannot be checked by type alone.
func (f *File) Validate() error {
	backend := f.StoreBackend()
	if !slices.Contains(store.Backends, store.Backend(backend)) {
		return pkgerrors.Errorf("unknown store backend %q, must be one of %v", backend, store.Backends)
	}
	if store.Backend(backend) != store.BackendMemory && f.StorePath() == "" {
		return pkgerrors.Errorf("store backend %s needs a store path", backend)
	}
	if f.WatchStore() && store.Backend(backend) != store.BackendFile {
		logrus.WithField("storeBackend", backend).Warn("watchStore only applies to the file backend, ignoring")
	}
	return nil
}

func (f *File) StoreBackend() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.StoreBackend, *defaultFileConfig.StoreBackend)
}

func (f *File) StorePath() string {
	if f.c == nil {
		panic("config is nil")
	}

	backend := f.StoreBackend()

	f.mu.RLock()
	defer f.mu.RUnlock()

	var path string

	if f.c.StorePath != nil {
		path = *f.c.StorePath
	} else {
		path = defaultStorePaths[store.Backend(backend)]
	}

	return path
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.AllowNonRootAccess, *defaultFileConfig.AllowNonRootAccess)
}

func (f *File) ListenAddress() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.ListenAddress, *defaultFileConfig.ListenAddress)
}

func (f *File) Metrics() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.Metrics, *defaultFileConfig.Metrics)
}

func (f *File) BackupSchedule() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.BackupSchedule, *defaultFileConfig.BackupSchedule)
}

func (f *File) BackupDir() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.BackupDir, *defaultFileConfig.BackupDir)
}

func (f *File) WatchStore() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.WatchStore, *defaultFileConfig.WatchStore)
}

func (f *File) SetStoreBackend(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.StoreBackend = &s
}

func (f *File) SetStorePath(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.StorePath = &s
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

func (f *File) SetListenAddress(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ListenAddress = &s
}

func (f *File) SetMetrics(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Metrics = &b
}

func (f *File) SetBackupSchedule(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.BackupSchedule = &s
}

func (f *File) SetBackupDir(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.BackupDir = &s
}

func (f *File) SetWatchStore(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.WatchStore = &b
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
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
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}
	configString := string(b)

	if strings.TrimSpace(configString) == "" {
		// If the file is empty, return the empty config.
		// Do not make f.c a nil.
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"storeBackend":       f.StoreBackend(),
		"storePath":          f.StorePath(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
		"listenAddress":      f.ListenAddress(),
		"metrics":            f.Metrics(),
		"backupSchedule":     f.BackupSchedule(),
		"backupDir":          f.BackupDir(),
		"watchStore":         f.WatchStore(),
	}
}
