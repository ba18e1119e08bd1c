// Package config handles loading and validating NaviLink client configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Validation of required fields and numeric ranges
//   - Default value handling
//
// Security Considerations:
//   - Broker credentials are temporary AWS session credentials; the static
//     credentials section is intended for monitor deployments where the
//     account service is consulted out of band
//   - The config file should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Broker.Endpoint)
package config
