package config

type Config interface {
	StoreBackend() string
	StorePath() string
	AllowNonRootAccess() bool
	ListenAddress() string
	Metrics() bool
	BackupSchedule() string
	BackupDir() string
	WatchStore() bool

	SetStoreBackend(string)
	SetStorePath(string)
	SetAllowNonRootAccess(bool)
	SetListenAddress(string)
	SetMetrics(bool)
	SetBackupSchedule(string)
	SetBackupDir(string)
	SetWatchStore(bool)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
