// Package config loads and validates the pulsewatch-agent YAML configuration.
//
// Secrets never live in the config file: the auth section names an
// environment variable (key_env) and the value is resolved at use time.
// Watch provides fsnotify-based hot reload of the file.
package config
