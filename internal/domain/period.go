package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Bucket is the time-grouping unit for aggregation.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

// ParseBucket accepts "day", "week" or "month".
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case BucketDay, BucketWeek, BucketMonth:
		return Bucket(s), nil
	}
	return "", fmt.Errorf("unknown bucket %q: must be one of day, week, month", s)
}

// Period is a bucket anchored at its first day.
type Period struct {
	Bucket Bucket
	Start  civil.Date
}

// PeriodOf returns the period of the given bucket containing d.
// Weeks start on Monday.
func PeriodOf(b Bucket, d civil.Date) Period {
	switch b {
	case BucketMonth:
		return Period{Bucket: b, Start: civil.Date{Year: d.Year, Month: d.Month, Day: 1}}
	case BucketWeek:
		wd := int(d.In(time.UTC).Weekday())
		// Monday = 0
		offset := (wd + 6) % 7
		return Period{Bucket: b, Start: d.AddDays(-offset)}
	default:
		return Period{Bucket: BucketDay, Start: d}
	}
}

// Next returns the period immediately after p.
func (p Period) Next() Period {
	return p.Add(1)
}

// Add shifts p by n periods of its own bucket.
func (p Period) Add(n int) Period {
	switch p.Bucket {
	case BucketMonth:
		t := time.Date(p.Start.Year, p.Start.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
		return Period{Bucket: p.Bucket, Start: civil.DateOf(t)}
	case BucketWeek:
		return Period{Bucket: p.Bucket, Start: p.Start.AddDays(7 * n)}
	default:
		return Period{Bucket: p.Bucket, Start: p.Start.AddDays(n)}
	}
}

// End returns the last day covered by p.
func (p Period) End() civil.Date {
	return p.Next().Start.AddDays(-1)
}

// Contains reports whether d falls inside p.
func (p Period) Contains(d civil.Date) bool {
	return !d.Before(p.Start) && !d.After(p.End())
}

// Before orders periods by start date.
func (p Period) Before(o Period) bool {
	return p.Start.Before(o.Start)
}

// String renders a stable label: 2024-03-15 for days, 2024-W11 for weeks and
// 2024-03 for months.
func (p Period) String() string {
	switch p.Bucket {
	case BucketMonth:
		return fmt.Sprintf("%04d-%02d", p.Start.Year, int(p.Start.Month))
	case BucketWeek:
		y, w := p.Start.In(time.UTC).ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	default:
		return p.Start.String()
	}
}
