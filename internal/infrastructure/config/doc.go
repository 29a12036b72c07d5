// Package config handles loading and validating WebGate configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (STAGETWO_*)
//   - Validation of the NVM layout, auth policy and API settings
//   - Default value handling for freshly flashed devices
//
// Security Considerations:
//   - Broker and InfluxDB credentials should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - security.auth.required=false admits every request and is for bench use only
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.Name)
package config
