package system

// DiskUsage describes capacity on the filesystem holding a path.
type DiskUsage struct {
	Total     uint64 `json:"total"`
	Used      uint64 `json:"used"`
	Free      uint64 `json:"free"`
	Available uint64 `json:"available"`
}

// PercentUsed returns used space as a percentage of total.
func (d *DiskUsage) PercentUsed() float64 {
	if d.Total == 0 {
		return 0
	}
	return float64(d.Used) / float64(d.Total) * 100
}

// CheckDiskSpace reports usage for the filesystem containing path.
func CheckDiskSpace(path string) (*DiskUsage, error) {
	return getDiskUsage(path)
}
