// Package dotdir resolves the .memex/ per-user configuration and data
// directory used to locate config.toml and the default SQLite/libSQL
// database file when the caller does not supply a path explicitly.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the memex directory.
	dirName = ".memex"

	// ConfigFileName is the name of the persisted config file inside the
	// resolved .memex/ directory.
	ConfigFileName = "config.toml"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .memex/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.memex/ dir
//  3. Home ~/.memex/ dir
//  4. If none found, attempt to create ~/.memex/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating memex directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// localDirExists checks whether a .memex/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}

// ConfigPath resolves the target .memex/ directory (see Target) and
// returns the absolute path to config.toml inside it.
func (m *Manager) ConfigPath(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(target, ConfigFileName), nil
}

// ResolveDBPath joins a relative database path (e.g. the default
// "memex.db") against the resolved .memex/ directory, so the database
// lives next to config.toml rather than wherever the calling process
// happens to have its working directory. The sqlite/libsql ":memory:"
// sentinel and any path that is already absolute pass through unchanged.
func (m *Manager) ResolveDBPath(overrideDir, dbPath string) (string, error) {
	if dbPath == "" || dbPath == ":memory:" || filepath.IsAbs(dbPath) {
		return dbPath, nil
	}

	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(target, dbPath), nil
}
