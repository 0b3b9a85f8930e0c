// Package config provides forge's layered configuration model.
//
// Configuration is resolved from four layers, lowest to highest priority:
// built-in defaults (NewDefaults), the forge.toml file (LoadFromFile),
// environment variables, and CLI flags. Resolve merges all four into a
// ResolvedConfig that also records, per field, which layer won.
package config
