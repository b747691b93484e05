// Package confloader loads layered configuration with koanf.
//
// Sources, lowest to highest priority:
//
//  1. Defaults held by the target struct
//  2. A YAML configuration file
//  3. Environment variables, optionally seeded from dotenv files
//
// Environment keys drop the prefix, are lowercased, and use a double
// underscore as the nesting separator.
//
// Watcher reports writes to a configuration file so callers can re-read
// the settings that are safe to change at runtime.
package confloader
