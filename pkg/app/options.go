package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// NamedFlagSetOptions is implemented by the options of every command built
// with App. Flags are grouped by name for help output.
type NamedFlagSetOptions interface {
	// Flags returns the command flags, grouped by section.
	Flags() cliflag.NamedFlagSets

	// Complete fills in the fields that were not set and can be derived.
	Complete() error

	// Validate checks the options; the returned error may aggregate several.
	Validate() error
}
