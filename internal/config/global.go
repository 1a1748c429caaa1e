// SPDX-License-Identifier: MPL-2.0

package config

import "context"

var (
	// configFileOverride forces loading from a specific file, set from the
	// --config flag.
	configFileOverride string

	// configDirOverride allows tests to override the config directory.
	// This is necessary because os.UserHomeDir() doesn't reliably respect
	// the HOME environment variable on all platforms (e.g., macOS in CI).
	configDirOverride string

	// dataDirOverride allows tests to override the data directory.
	dataDirOverride string
)

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configFileOverride = ""
	configDirOverride = ""
	dataDirOverride = ""
}

// SetConfigFilePathOverride forces configuration to load from the given file.
// Called from the root command when --config is set.
func SetConfigFilePathOverride(path string) {
	configFileOverride = path
}

// SetConfigDirOverride sets a custom config directory path. Primarily for
// testing, to bypass os.UserHomeDir().
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// SetDataDirOverride sets a custom data directory path. Primarily for
// testing.
func SetDataDirOverride(dir string) {
	dataDirOverride = dir
}

// Load reads configuration using the package-level overrides. It is the
// convenience entry point for commands; code that needs explicit inputs uses
// a Provider instead.
func Load() (*Config, error) {
	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: configFileOverride,
	})
	return cfg, err
}
