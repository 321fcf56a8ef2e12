// Package config loads server configuration from environment variables.
package config
