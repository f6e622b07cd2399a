//go:build windows

package process

import "github.com/alda-lang/alda-client/internal/logging"

// NewLister returns the lister for this platform.
func NewLister(logger *logging.Logger) Lister {
	return &FallbackLister{
		Primary: GopsutilLister{},
		Logger:  logger,
	}
}
