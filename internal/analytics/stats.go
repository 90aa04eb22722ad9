package analytics

import (
	"fmt"
	"time"
)

// HourCount is the number of entries scanned during one clock hour.
type HourCount struct {
	Hour  int
	Count int
}

// Label renders the hour as "HH:00".
func (h HourCount) Label() string {
	return HourLabel(h.Hour)
}

// FlowPoint is one hour of the cumulative entry flow.
type FlowPoint struct {
	Hour       int
	Count      int
	Cumulative int
}

// Label renders the hour as "HH:00".
func (p FlowPoint) Label() string {
	return HourLabel(p.Hour)
}

// Stats is the attendance and sales summary of one event.
type Stats struct {
	TotalRevenue      float64
	AvgTicketPrice    float64
	TotalCapacity     int
	TicketsSold       int
	TicketsAvailable  int
	TicketsScanned    int
	AttendanceRatePct float64
	HourlyBreakdown   []HourCount
	PeakHour          *int
	MaxHourCount      int
	CumulativeFlow    []FlowPoint
	EventStartHour    int
}

// Input is everything Compute needs. Hours are read in Location.
type Input struct {
	Capacity  int
	UnitPrice float64
	Issued    int
	Scanned   int
	ScanTimes []time.Time
	StartsAt  time.Time
	Now       time.Time
	Location  *time.Location
}

// HourLabel renders an hour of the day as "HH:00".
func HourLabel(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// Compute derives the statistics from raw counts and scan times.
func Compute(in Input) Stats {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	stats := Stats{
		TotalCapacity:    in.Capacity,
		TicketsSold:      in.Issued,
		TicketsAvailable: in.Capacity - in.Issued,
		TicketsScanned:   in.Scanned,
		TotalRevenue:     float64(in.Issued) * in.UnitPrice,
		EventStartHour:   in.StartsAt.In(loc).Hour(),
		HourlyBreakdown:  []HourCount{},
		CumulativeFlow:   []FlowPoint{},
	}
	if in.Issued > 0 {
		stats.AvgTicketPrice = in.UnitPrice
		stats.AttendanceRatePct = float64(in.Scanned) / float64(in.Issued) * 100
	}

	var perHour [24]int
	first, last := -1, -1
	for _, ts := range in.ScanTimes {
		h := ts.In(loc).Hour()
		perHour[h]++
		if first < 0 || h < first {
			first = h
		}
		if h > last {
			last = h
		}
	}

	start, end := window(stats.EventStartHour, in.Now.In(loc).Hour(), first, last)

	// peak only moves on a strict improvement, so ties keep the earliest hour
	for h := 0; h < 24; h++ {
		if perHour[h] > stats.MaxHourCount {
			stats.MaxHourCount = perHour[h]
			peak := h
			stats.PeakHour = &peak
		}
	}

	cumulative := 0
	for h := start; h <= end; h++ {
		count := perHour[h]
		cumulative += count
		if count > 0 {
			stats.HourlyBreakdown = append(stats.HourlyBreakdown, HourCount{Hour: h, Count: count})
		}
		stats.CumulativeFlow = append(stats.CumulativeFlow, FlowPoint{Hour: h, Count: count, Cumulative: cumulative})
	}

	return stats
}

// window returns the inclusive hour range shown in charts. first and last are
// -1 when nothing has been scanned.
func window(eventHour, nowHour, first, last int) (int, int) {
	if first < 0 {
		return max(0, eventHour-2), min(23, nowHour+1)
	}
	return min(eventHour, first), min(23, max(nowHour+1, last))
}
