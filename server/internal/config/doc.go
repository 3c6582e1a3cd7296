// Package config loads and validates the pulsewatch-server YAML
// configuration. Secrets (the inbound API key, the Telegram bot token) are
// referenced by environment variable name and resolved at use time, so the
// config file itself stays safe to commit.
package config
