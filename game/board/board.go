// Package board derives read-only views of the quest list: the kanban
// columns, the schedule, and the dashboard summary. Nothing here touches
// the store.
package board

import (
	"sort"
	"time"

	"github.com/questboard/questboard/model"
)

// Column is one workflow column of the board.
type Column struct {
	Status model.QuestStatus `json:"status"`
	Quests []model.Quest     `json:"quests"`
}

// GroupByStatus partitions quests into the four workflow columns, in
// workflow order, each sorted by creation time then id. Quests with an
// unknown status are dropped.
func GroupByStatus(quests []model.Quest) []Column {
	cols := make([]Column, len(model.Statuses))
	index := make(map[model.QuestStatus]int, len(model.Statuses))
	for i, st := range model.Statuses {
		cols[i] = Column{Status: st, Quests: []model.Quest{}}
		index[st] = i
	}
	for _, q := range quests {
		if i, ok := index[q.Status]; ok {
			cols[i].Quests = append(cols[i].Quests, q)
		}
	}
	for i := range cols {
		sort.SliceStable(cols[i].Quests, func(a, b int) bool {
			qa, qb := cols[i].Quests[a], cols[i].Quests[b]
			if !qa.CreatedAt.Equal(qb.CreatedAt) {
				return qa.CreatedAt.Before(qb.CreatedAt)
			}
			return qa.ID < qb.ID
		})
	}
	return cols
}

// ScheduleEntry is a quest placed on the calendar.
type ScheduleEntry struct {
	QuestID  int64             `json:"quest_id"`
	Title    string            `json:"title"`
	Status   model.QuestStatus `json:"status"`
	Assignee string            `json:"assignee"`
	Start    time.Time         `json:"start"`
	Due      time.Time         `json:"due"`
}

// Days is the inclusive length of the entry in calendar days.
func (e ScheduleEntry) Days() int {
	return int(e.Due.Sub(e.Start).Hours()/24) + 1
}

// ScheduleRange lists quests that have both a start and a due date, sorted
// by start, then due, then id.
func ScheduleRange(quests []model.Quest) []ScheduleEntry {
	out := []ScheduleEntry{}
	for _, q := range quests {
		if !q.HasSchedule() {
			continue
		}
		out = append(out, ScheduleEntry{
			QuestID:  q.ID,
			Title:    q.Title,
			Status:   q.Status,
			Assignee: q.AssigneeName(),
			Start:    day(*q.StartDate),
			Due:      day(*q.DueDate),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.Due.Equal(b.Due) {
			return a.Due.Before(b.Due)
		}
		return a.QuestID < b.QuestID
	})
	return out
}

// Bar is a schedule entry clipped to a window, measured in day columns from
// the window start.
type Bar struct {
	ScheduleEntry
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// DefaultWindowDays is the width of the schedule chart.
const DefaultWindowDays = 30

// Window returns the entries overlapping the days [from, from+days) as bars
// clipped to that range. Non-positive days selects DefaultWindowDays.
func Window(entries []ScheduleEntry, from time.Time, days int) []Bar {
	if days <= 0 {
		days = DefaultWindowDays
	}
	start := day(from)
	end := start.AddDate(0, 0, days) // exclusive

	out := []Bar{}
	for _, e := range entries {
		if !e.Start.Before(end) || e.Due.Before(start) {
			continue
		}
		first, last := e.Start, e.Due
		if first.Before(start) {
			first = start
		}
		if !last.Before(end) {
			last = end.AddDate(0, 0, -1)
		}
		out = append(out, Bar{
			ScheduleEntry: e,
			Offset:        daysBetween(start, first),
			Length:        daysBetween(first, last) + 1,
		})
	}
	return out
}

// Summary is the dashboard view of the board.
type Summary struct {
	Total    int                       `json:"total"`
	ByStatus map[model.QuestStatus]int `json:"by_status"`
	// OpenByAssignee counts quests not yet Done per assignee; "" collects
	// unclaimed quests.
	OpenByAssignee map[string]int `json:"open_by_assignee"`
	Overdue        []model.Quest  `json:"overdue"`
}

// Summarize counts quests per status and per assignee and lists open quests
// whose due date is before today.
func Summarize(quests []model.Quest, today time.Time) Summary {
	s := Summary{
		Total:          len(quests),
		ByStatus:       make(map[model.QuestStatus]int, len(model.Statuses)),
		OpenByAssignee: map[string]int{},
		Overdue:        []model.Quest{},
	}
	for _, st := range model.Statuses {
		s.ByStatus[st] = 0
	}
	today = day(today)
	for _, q := range quests {
		s.ByStatus[q.Status]++
		if q.Status == model.StatusDone {
			continue
		}
		s.OpenByAssignee[q.AssigneeName()]++
		if q.DueDate != nil && day(*q.DueDate).Before(today) {
			s.Overdue = append(s.Overdue, q)
		}
	}
	sort.SliceStable(s.Overdue, func(i, j int) bool {
		a, b := s.Overdue[i], s.Overdue[j]
		if !a.DueDate.Equal(*b.DueDate) {
			return a.DueDate.Before(*b.DueDate)
		}
		return a.ID < b.ID
	})
	return s
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
