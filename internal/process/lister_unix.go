//go:build !windows

package process

import "github.com/alda-lang/alda-client/internal/logging"

// NewLister returns the lister for this platform: ps, then gopsutil.
func NewLister(logger *logging.Logger) Lister {
	return &FallbackLister{
		Primary:  &PSLister{},
		Fallback: GopsutilLister{},
		Logger:   logger,
	}
}
