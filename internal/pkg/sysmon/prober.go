package sysmon

import (
	"context"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// MemoryStat holds one memory reading.
type MemoryStat struct {
	Total       uint64
	Available   uint64
	Used        uint64
	Cached      uint64
	UsedPercent float64
}

// DiskStat holds one filesystem usage reading.
type DiskStat struct {
	Total       uint64
	Used        uint64
	Free        uint64
	UsedPercent float64
}

// Prober reads host utilization. The host implementation is swapped out in
// tests.
type Prober interface {
	CPUPercent(ctx context.Context) ([]float64, error)
	Memory(ctx context.Context) (MemoryStat, error)
	Disk(ctx context.Context, path string) (DiskStat, error)
}

type hostProber struct{}

// CPUPercent returns per-core utilization since the previous call.
func (hostProber) CPUPercent(ctx context.Context) ([]float64, error) {
	return cpu.PercentWithContext(ctx, 0, true)
}

func (hostProber) Memory(ctx context.Context) (MemoryStat, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryStat{}, err
	}
	return MemoryStat{
		Total:       vm.Total,
		Available:   vm.Available,
		Used:        vm.Used,
		Cached:      vm.Cached,
		UsedPercent: vm.UsedPercent,
	}, nil
}

func (hostProber) Disk(ctx context.Context, path string) (DiskStat, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return DiskStat{}, err
	}
	return DiskStat{
		Total:       usage.Total,
		Used:        usage.Used,
		Free:        usage.Free,
		UsedPercent: usage.UsedPercent,
	}, nil
}
