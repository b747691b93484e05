// Package config defines the respkv-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default values
//   - verify.go: validation of loaded values
//
// Values are loaded by internal/infra/confloader from a YAML file and
// RESPKV_ environment variables on top of Default().
package config
