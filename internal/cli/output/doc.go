// Package output renders replies for respkv-cli.
//
//   - text: redis-cli style lines, tables for CLIENT INFO and CLIENT LIST
//   - json: indented JSON
//   - yaml: YAML via gopkg.in/yaml.v3
//
// KeyValues keeps the field order of a CLIENT INFO line in every format.
package output
