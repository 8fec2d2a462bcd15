// Package config provides configuration structures and utilities for
// listingscan. It defines the run options shared by both sites and the
// per-site overrides read from the .listingscan YAML file.
package config
