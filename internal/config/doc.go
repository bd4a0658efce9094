// Package config defines the format-agnostic model of an experiment file:
// artifact declarations, kernel versions, the sweep and the experiment
// constants. Loaders for concrete formats (see internal/hcl) produce a
// Model; the app turns it into a registry and a run factory.
package config
