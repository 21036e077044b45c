package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default xld data directory name (relative to home).
	DefaultDataDir = ".xld"
	// ConfigFile is the configuration file name.
	ConfigFile = "config.yaml"
	// HistoryDBFile is the run history database file name.
	HistoryDBFile = "history.db"
)

// DataDir returns the xld data directory of a home directory.
func DataDir(home string) string {
	return filepath.Join(home, DefaultDataDir)
}

// ConfigPath returns the default configuration file path.
func ConfigPath(home string) string {
	return filepath.Join(DataDir(home), ConfigFile)
}

// HistoryDBPath returns the default run history database path.
func HistoryDBPath(home string) string {
	return filepath.Join(DataDir(home), HistoryDBFile)
}
