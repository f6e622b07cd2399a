package process

import (
	"context"

	gops "github.com/shirou/gopsutil/v4/process"
)

// GopsutilLister reads the process table through gopsutil. It works on every
// platform, including those without ps.
type GopsutilLister struct{}

// List implements Lister. Processes that vanish or deny access while being
// inspected are skipped.
func (GopsutilLister) List(ctx context.Context) ([]Record, error) {
	procs, err := gops.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, p := range procs {
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		if rec, ok := ParseCommandLine(int(p.Pid), args); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}
