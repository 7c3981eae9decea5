// Package insights derives mood statistics from an owner's recent entries.
// Every function here is pure: callers pass in already-fetched samples and get
// values back, nothing is stored.
package insights

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"
)

// Selectable trailing windows, in days.
var Windows = []int{7, 30, 90}

const (
	DefaultWindow = 30

	// trendThreshold is how far the second-half mean must move from the
	// first-half mean before the trend is reported as up or down.
	trendThreshold = 0.3
)

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Sample is the part of an entry the engine looks at.
type Sample struct {
	Mood      int       `json:"mood"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidWindow reports whether days is one of Windows.
func ValidWindow(days int) bool {
	return lo.Contains(Windows, days)
}

// WindowStart is local midnight, days calendar days before now.
func WindowStart(now time.Time, days int, loc *time.Location) time.Time {
	return Midnight(now, loc).AddDate(0, 0, -days)
}

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AverageMood is the mean mood rounded to one decimal, 0 for no samples.
func AverageMood(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	return round1(mean(samples))
}

// CurrentStreak counts consecutive calendar days with at least one sample,
// walking backward from the day of the newest sample.
func CurrentStreak(samples []Sample, loc *time.Location) int {
	if len(samples) == 0 {
		return 0
	}
	days := make(map[string]bool, len(samples))
	for _, s := range samples {
		days[dayKey(s.CreatedAt, loc)] = true
	}
	newest := lo.MaxBy(samples, func(a, b Sample) bool { return a.CreatedAt.After(b.CreatedAt) })

	streak := 0
	for anchor := Midnight(newest.CreatedAt, loc); days[dayKey(anchor, loc)]; anchor = anchor.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// TrendOf compares the mean mood of the later half of chronologically ordered
// samples against the earlier half.
func TrendOf(samples []Sample) Trend {
	n := len(samples)
	if n < 2 {
		return TrendStable
	}
	half := n / 2
	first, second := mean(samples[:half]), mean(samples[half:])
	switch {
	case second > first+trendThreshold:
		return TrendUp
	case second < first-trendThreshold:
		return TrendDown
	}
	return TrendStable
}

// Distribution counts samples per mood, indexed by mood-1. Out-of-range moods
// are ignored.
func Distribution(samples []Sample) [5]int {
	var counts [5]int
	for _, s := range samples {
		if s.Mood >= 1 && s.Mood <= 5 {
			counts[s.Mood-1]++
		}
	}
	return counts
}

// Point is one plotted sample.
type Point struct {
	Date string `json:"date"`
	Mood int    `json:"mood"`
}

// Summary is everything the insights view shows for one window.
type Summary struct {
	Days         int     `json:"days"`
	TotalEntries int     `json:"totalEntries"`
	AverageMood  float64 `json:"averageMood"`
	Streak       int     `json:"streak"`
	Trend        Trend   `json:"trend"`
	Distribution [5]int  `json:"distribution"`
	Points       []Point `json:"points"`
}

// Empty is the summary reported when there is nothing to summarize.
func Empty(days int) Summary {
	return Summary{Days: days, Trend: TrendStable, Points: []Point{}}
}

// Summarize sorts samples chronologically and derives every statistic.
func Summarize(samples []Sample, days int, loc *time.Location) Summary {
	if len(samples) == 0 {
		return Empty(days)
	}
	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	return Summary{
		Days:         days,
		TotalEntries: len(sorted),
		AverageMood:  AverageMood(sorted),
		Streak:       CurrentStreak(sorted, loc),
		Trend:        TrendOf(sorted),
		Distribution: Distribution(sorted),
		Points: lo.Map(sorted, func(s Sample, _ int) Point {
			return Point{Date: dayKey(s.CreatedAt, loc), Mood: s.Mood}
		}),
	}
}

func mean(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	return float64(lo.SumBy(samples, func(s Sample) int { return s.Mood })) / float64(len(samples))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func dayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}
