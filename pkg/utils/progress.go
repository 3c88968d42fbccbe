package utils

import (
	"fmt"
	"strings"
	"time"
)

// ProgressBar renders a single-line terminal progress bar.
type ProgressBar struct {
	total       int64
	current     int64
	description string
	startTime   time.Time
	width       int
	showETA     bool
	bytes       bool
}

// NewProgressBar creates a progress bar counting up to total.
func NewProgressBar(total int64, description string) *ProgressBar {
	return &ProgressBar{
		total:       total,
		description: description,
		startTime:   time.Now(),
		width:       30,
		showETA:     true,
	}
}

// AsBytes renders the counters as sizes instead of raw counts.
func (pb *ProgressBar) AsBytes() *ProgressBar {
	pb.bytes = true
	return pb
}

// SetTotal replaces the total, for transfers that learn their size late.
func (pb *ProgressBar) SetTotal(total int64) {
	pb.total = total
}

// Update sets the current position and redraws.
func (pb *ProgressBar) Update(current int64) {
	pb.current = current
	pb.render()
}

// Increment advances the position by one and redraws.
func (pb *ProgressBar) Increment() {
	pb.current++
	pb.render()
}

// SetDescription updates the label and redraws.
func (pb *ProgressBar) SetDescription(desc string) {
	pb.description = desc
	pb.render()
}

// Finish fills the bar and moves to the next line.
func (pb *ProgressBar) Finish() {
	pb.current = pb.total
	pb.render()
	fmt.Println()
}

func (pb *ProgressBar) render() {
	if pb.total <= 0 {
		return
	}

	percentage := float64(pb.current) / float64(pb.total) * 100
	filled := int(float64(pb.width) * float64(pb.current) / float64(pb.total))
	if filled > pb.width {
		filled = pb.width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", pb.width-filled)

	var eta string
	if pb.showETA && pb.current > 0 && pb.current < pb.total {
		elapsed := time.Since(pb.startTime)
		totalTime := time.Duration(float64(elapsed) * float64(pb.total) / float64(pb.current))
		if remaining := totalTime - elapsed; remaining > 0 {
			eta = fmt.Sprintf(" ETA: %v", remaining.Round(time.Second))
		}
	}

	counts := fmt.Sprintf("%d/%d", pb.current, pb.total)
	if pb.bytes {
		counts = fmt.Sprintf("%s/%s", FormatBytes(pb.current), FormatBytes(pb.total))
	}
	fmt.Printf("\r%s [%s] %.1f%% (%s)%s", pb.description, bar, percentage, counts, eta)
}
