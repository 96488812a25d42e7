// Package model defines the allocation results shared by fdspp's packages.
package model

// Process is one MPI process (bucket) and the meshes placed on it.
type Process struct {
	Total  uint64   `json:"total"`
	Meshes []uint64 `json:"meshes"` // cell counts, in placement order
}

// NewProcess builds a Process whose total is the sum of meshes.
func NewProcess(meshes []uint64) Process {
	if meshes == nil {
		meshes = []uint64{}
	}
	p := Process{Meshes: meshes}
	for _, n := range meshes {
		p.Total += n
	}
	return p
}

// Allocation is the outcome of distributing meshes over MPI processes.
type Allocation struct {
	Processes []Process `json:"processes"`
}

// Totals returns the total cell count of each process, in process order.
func (a Allocation) Totals() []uint64 {
	totals := make([]uint64, len(a.Processes))
	for i := range a.Processes {
		totals[i] = a.Processes[i].Total
	}
	return totals
}
