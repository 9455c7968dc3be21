package domain

import "time"

// Attendance is a single attendance record.
type Attendance struct {
	ID         int64
	StudentID  string
	Name       string
	RecordedAt time.Time
}
