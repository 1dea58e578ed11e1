// Package sysmon reports what the running stages of a pipeline are doing.
package sysmon

import (
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// StageInfo is a snapshot of one running pipeline stage.
type StageInfo struct {
	Stage      int
	PID        int32
	Name       string
	Cmdline    string
	Status     string
	MemoryMB   float64 // RSS in MB
	NumThreads int32
	CreateTime time.Time
}

func (s *StageInfo) String() string {
	return fmt.Sprintf("stage %d pid %d %s [%s] %.1fMB", s.Stage, s.PID, s.Name, s.Status, s.MemoryMB)
}

// Inspect returns a snapshot for every pid that is still running. pids are the
// stage pids in pipeline order; stages that already exited are left out.
func Inspect(pids []int) []*StageInfo {
	var stages []*StageInfo
	for i, pid := range pids {
		p, err := process.NewProcess(int32(pid))
		if err != nil {
			continue
		}
		info := fetchStageInfo(p)
		info.Stage = i
		stages = append(stages, info)
	}
	return stages
}

// fetchStageInfo reads what it can. Any field may stay empty for a process that
// exits while it is being inspected.
func fetchStageInfo(p *process.Process) *StageInfo {
	info := &StageInfo{
		PID: p.Pid,
	}

	if name, err := p.Name(); err == nil {
		info.Name = name
	}

	if cmdline, err := p.Cmdline(); err == nil {
		info.Cmdline = cmdline
	}

	if memInfo, err := p.MemoryInfo(); err == nil {
		info.MemoryMB = float64(memInfo.RSS) / 1024 / 1024
	}

	if status, err := p.Status(); err == nil && len(status) > 0 {
		info.Status = strings.Join(status, ",")
	}

	if numThreads, err := p.NumThreads(); err == nil {
		info.NumThreads = numThreads
	}

	if createTime, err := p.CreateTime(); err == nil {
		info.CreateTime = time.Unix(0, createTime*int64(time.Millisecond))
	}

	return info
}
