// SPDX-License-Identifier: MPL-2.0

// Package config loads ersa's user configuration. The config file is CUE,
// validated against an embedded schema and merged over defaults via Viper,
// and lives in the platform config directory (~/.config/ersa on Linux).
package config
