// Package settings resolves the effective MoIP controller connection
// parameters.
//
// Values persisted through the management API live in the app_settings
// table and take precedence over the config file (which has already folded
// in environment overrides), which takes precedence over built-in defaults.
// This lets an operator point the manager at a controller from the UI
// without touching the deployment.
package settings
