// Package reporting turns a ticket collection into dashboard aggregates. Every function is
// a pure transform over its input; nothing is cached between calls.
package reporting

import (
	"math"
	"sort"
	"time"

	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/sla"
)

// BucketCompleted groups resolved and closed tickets in the SLA breakdown.
const BucketCompleted = "completed"

const unassignedTeam = "Unassigned"

// DayCount is the number of tickets created and resolved on one UTC day.
type DayCount struct {
	Day      time.Time `json:"day"`
	Created  int       `json:"created"`
	Resolved int       `json:"resolved"`
}

// SLAShare is one bucket of the SLA breakdown.
type SLAShare struct {
	Bucket  string `json:"bucket"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// TeamRate is the resolution rate of one team.
type TeamRate struct {
	TeamID      string `json:"team_id"`
	TeamName    string `json:"team_name"`
	Total       int    `json:"total"`
	Completed   int    `json:"completed"`
	RatePercent int    `json:"rate_percent"`
}

// IssueTypeCount is the frequency of one issue type.
type IssueTypeCount struct {
	IssueTypeID string `json:"issue_type_id"`
	Name        string `json:"name"`
	Count       int    `json:"count"`
}

// Options parameterize Build.
type Options struct {
	From           time.Time
	To             time.Time
	Now            time.Time
	TopN           int
	IssueTypeNames map[string]string
	TeamNames      map[string]string
}

// Report is the full dashboard payload.
type Report struct {
	From           time.Time        `json:"from"`
	To             time.Time        `json:"to"`
	GeneratedAt    time.Time        `json:"generated_at"`
	Total          int              `json:"total"`
	ResolutionRate int              `json:"resolution_rate"`
	Volume         []DayCount       `json:"volume"`
	SLA            []SLAShare       `json:"sla"`
	Teams          []TeamRate       `json:"teams"`
	IssueTypes     []IssueTypeCount `json:"issue_types"`
}

// Build computes every aggregate for tickets.
func Build(tickets []domain.Ticket, opts Options) Report {
	return Report{
		From:           opts.From,
		To:             opts.To,
		GeneratedAt:    opts.Now,
		Total:          len(tickets),
		ResolutionRate: ResolutionRate(tickets),
		Volume:         DailyVolume(tickets, opts.From, opts.To),
		SLA:            SLABreakdown(tickets, opts.Now),
		Teams:          ResolutionRateByTeam(tickets, opts.TeamNames),
		IssueTypes:     TopIssueTypes(tickets, opts.TopN, opts.IssueTypeNames),
	}
}

// DailyVolume counts created and resolved tickets per UTC day in [from, to]. Days without
// activity are present with zero counts.
func DailyVolume(tickets []domain.Ticket, from, to time.Time) []DayCount {
	start := truncateDay(from)
	end := truncateDay(to)
	if end.Before(start) {
		return []DayCount{}
	}

	index := make(map[time.Time]int)
	days := make([]DayCount, 0, int(end.Sub(start)/(24*time.Hour))+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		index[day] = len(days)
		days = append(days, DayCount{Day: day})
	}

	for i := range tickets {
		if pos, ok := index[truncateDay(tickets[i].CreatedAt)]; ok {
			days[pos].Created++
		}
		if done := completedAt(&tickets[i]); done != nil {
			if pos, ok := index[truncateDay(*done)]; ok {
				days[pos].Resolved++
			}
		}
	}
	return days
}

// SLABreakdown returns the share of tickets per SLA bucket, evaluated at now. Resolved and
// closed tickets fall in the completed bucket.
func SLABreakdown(tickets []domain.Ticket, now time.Time) []SLAShare {
	order := []string{
		string(domain.SLAStatusOnTrack),
		string(domain.SLAStatusWarning),
		string(domain.SLAStatusBreached),
		BucketCompleted,
	}
	counts := make(map[string]int, len(order))
	for i := range tickets {
		if tickets[i].Status.Completed() {
			counts[BucketCompleted]++
			continue
		}
		counts[string(sla.StatusAt(&tickets[i], now))]++
	}

	shares := make([]SLAShare, 0, len(order))
	for _, bucket := range order {
		shares = append(shares, SLAShare{
			Bucket:  bucket,
			Count:   counts[bucket],
			Percent: percent(counts[bucket], len(tickets)),
		})
	}
	return shares
}

// ResolutionRate returns the rounded percentage of resolved or closed tickets.
func ResolutionRate(tickets []domain.Ticket) int {
	completed := 0
	for i := range tickets {
		if tickets[i].Status.Completed() {
			completed++
		}
	}
	return percent(completed, len(tickets))
}

// ResolutionRateByTeam returns per-team resolution rates. Teams listed in names but
// without tickets are reported with a zero rate. Tickets without a team are reported
// under an empty team id.
func ResolutionRateByTeam(tickets []domain.Ticket, names map[string]string) []TeamRate {
	rates := make(map[string]*TeamRate)
	for id, name := range names {
		rates[id] = &TeamRate{TeamID: id, TeamName: name}
	}
	for i := range tickets {
		id := ""
		if tickets[i].TeamID != nil {
			id = *tickets[i].TeamID
		}
		rate, ok := rates[id]
		if !ok {
			rate = &TeamRate{TeamID: id, TeamName: teamName(id, names)}
			rates[id] = rate
		}
		rate.Total++
		if tickets[i].Status.Completed() {
			rate.Completed++
		}
	}

	out := make([]TeamRate, 0, len(rates))
	for _, rate := range rates {
		rate.RatePercent = percent(rate.Completed, rate.Total)
		out = append(out, *rate)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamName != out[j].TeamName {
			return out[i].TeamName < out[j].TeamName
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out
}

// TopIssueTypes returns the n most frequent issue types. Ties are ordered by name, then id.
// n <= 0 returns every issue type.
func TopIssueTypes(tickets []domain.Ticket, n int, names map[string]string) []IssueTypeCount {
	counts := make(map[string]int)
	for i := range tickets {
		counts[tickets[i].IssueTypeID]++
	}

	out := make([]IssueTypeCount, 0, len(counts))
	for id, count := range counts {
		name := names[id]
		if name == "" {
			name = id
		}
		out = append(out, IssueTypeCount{IssueTypeID: id, Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].IssueTypeID < out[j].IssueTypeID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}

// DayWindow widens [from, to] to whole UTC days. It returns midnight of from's day and
// midnight of the day after to, so the window is end-exclusive.
func DayWindow(from, to time.Time) (start, end time.Time) {
	return truncateDay(from), truncateDay(to).AddDate(0, 0, 1)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func completedAt(t *domain.Ticket) *time.Time {
	if t.ResolvedAt != nil {
		return t.ResolvedAt
	}
	return t.ClosedAt
}

func teamName(id string, names map[string]string) string {
	if id == "" {
		return unassignedTeam
	}
	if name, ok := names[id]; ok {
		return name
	}
	return id
}
