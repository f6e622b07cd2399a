package process

import (
	"context"

	"github.com/alda-lang/alda-client/internal/aldaerr"
	"github.com/alda-lang/alda-client/internal/logging"
)

// MsgListFailed is reported when no lister could read the process table.
const MsgListFailed = "Unable to list running processes."

// FallbackLister tries Primary and, if it fails, Fallback.
type FallbackLister struct {
	Primary  Lister
	Fallback Lister
	Logger   *logging.Logger
}

// List implements Lister.
func (l *FallbackLister) List(ctx context.Context) ([]Record, error) {
	records, err := l.Primary.List(ctx)
	if err == nil {
		return records, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	l.Logger.Warnf("primary process lister failed, falling back: %v", err)

	if l.Fallback == nil {
		return nil, aldaerr.System(MsgListFailed, err)
	}
	records, err = l.Fallback.List(ctx)
	if err != nil {
		return nil, aldaerr.System(MsgListFailed, err)
	}
	return records, nil
}
