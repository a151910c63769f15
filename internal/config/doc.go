// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. Settings are read
// once at startup and handed to components explicitly; nothing below the
// command layer reads the environment.
package config
