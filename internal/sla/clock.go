// Package sla computes SLA due times and the live status of a ticket's SLA timer.
package sla

import (
	"fmt"
	"time"

	"github.com/cityflow/crm/internal/domain"
)

// WarningWindow is how close to the due time a ticket turns to warning.
const WarningWindow = 2 * time.Hour

const (
	labelCompleted = "Completed"
	labelNoSLA     = "No SLA"
)

// DueAt returns the deadline for a ticket anchored at anchor with the given SLA hours.
func DueAt(anchor time.Time, hours int) time.Time {
	return anchor.Add(time.Duration(hours) * time.Hour)
}

// HoursBetween returns the whole hours from anchor to dueAt.
func HoursBetween(anchor, dueAt time.Time) int {
	return int(dueAt.Sub(anchor) / time.Hour)
}

// Evaluate returns the SLA bucket for dueAt as seen at now. A ticket is breached once now
// is strictly after dueAt and in warning while at most WarningWindow remains.
func Evaluate(dueAt, now time.Time) domain.SLAStatus {
	remaining := dueAt.Sub(now)
	switch {
	case remaining < 0:
		return domain.SLAStatusBreached
	case remaining <= WarningWindow:
		return domain.SLAStatusWarning
	default:
		return domain.SLAStatusOnTrack
	}
}

// Describe renders the remaining or overdue time as "<H>h <M>m remaining" or
// "<H>h <M>m overdue".
func Describe(dueAt, now time.Time) string {
	remaining := dueAt.Sub(now)
	suffix := "remaining"
	if remaining < 0 {
		remaining = -remaining
		suffix = "overdue"
	}
	hours := int(remaining / time.Hour)
	minutes := int((remaining % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm %s", hours, minutes, suffix)
}

// Timer is the SLA indicator shown for a ticket or group.
type Timer struct {
	Status    domain.SLAStatus `json:"status,omitempty"`
	Label     string           `json:"label"`
	DueAt     *time.Time       `json:"due_at,omitempty"`
	Completed bool             `json:"completed"`
}

// Track evaluates the timer for a ticket. Resolved and closed tickets never run a timer.
func Track(dueAt *time.Time, status domain.TicketStatus, now time.Time) Timer {
	if status.Completed() {
		return Timer{Label: labelCompleted, DueAt: dueAt, Completed: true}
	}
	if dueAt == nil {
		return Timer{Status: domain.SLAStatusOnTrack, Label: labelNoSLA}
	}
	return Timer{
		Status: Evaluate(*dueAt, now),
		Label:  Describe(*dueAt, now),
		DueAt:  dueAt,
	}
}

// TrackGroup evaluates the timer for a ticket group.
func TrackGroup(group *domain.TicketGroup, now time.Time) Timer {
	status := domain.TicketStatusAssigned
	if group.Status == domain.TicketGroupResolved {
		status = domain.TicketStatusResolved
	}
	return Track(group.SLADueAt, status, now)
}

// StatusAt returns the persisted sla_status for a ticket at now. Completed tickets keep
// their last stored value.
func StatusAt(t *domain.Ticket, now time.Time) domain.SLAStatus {
	if t.Status.Completed() || t.SLADueAt == nil {
		if t.SLAStatus == "" {
			return domain.SLAStatusOnTrack
		}
		return t.SLAStatus
	}
	return Evaluate(*t.SLADueAt, now)
}
