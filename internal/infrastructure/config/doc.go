// Package config provides configuration loading for Control Loop Core.
//
// Configuration is loaded from a YAML file with environment variable
// overrides, then validated before use.
//
// # Configuration Sources
//
// Priority order (highest wins):
//  1. Environment variables (CONTROLLOOP_*)
//  2. YAML configuration file
//  3. Built-in defaults
//
// # Secrets
//
// The OAuth client secret and InfluxDB token should be supplied via
// environment variables (CONTROLLOOP_AUTH_CLIENT_SECRET,
// CONTROLLOOP_HISTORY_TOKEN) rather than committed to the YAML file.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
