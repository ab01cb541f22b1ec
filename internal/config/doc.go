// Package config loads the arbfeed YAML configuration.
//
// ${VAR} references are expanded from the environment before parsing.
// An optional .env file is loaded into the environment first.
package config
