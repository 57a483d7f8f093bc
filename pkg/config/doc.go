// Package config loads mutgosd's operational knobs from a YAML file,
// the way cmd/warren/apply.go reads its resource YAML: read the file,
// gopkg.in/yaml.v3 unmarshal into a typed struct, return errors instead
// of panicking on a missing or malformed file. cmd/mutgosd layers cobra
// flags on top to let individual knobs be overridden at the command
// line.
package config
