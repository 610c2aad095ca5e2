// Package config loads and validates Hearth Core configuration.
//
// Configuration comes from a YAML file with hardcoded defaults underneath
// and HEARTH_* environment variable overrides on top:
//
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern HEARTH_SECTION_KEY, for
// example HEARTH_DATABASE_PATH or HEARTH_CLOUD_PASSWORD.
package config
