// Package config handles loading and validating Doorman configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of backend selection and the services backends depend on
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (passwords, tokens, the JWT secret) should be set via
//     environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load(config.ResolvePath(flagPath))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Site.Name)
package config
