package core

import (
	"math"
	"sort"
)

// TypeRevenue is the revenue summed for one lesson type.
type TypeRevenue struct {
	Type    string  `json:"type"`
	Revenue float64 `json:"revenue"`
}

// DateRevenue is the revenue summed for one lesson date.
type DateRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// DerivedMetrics is everything the dashboard shows for one filter selection.
type DerivedMetrics struct {
	TotalRevenue        float64       `json:"total_revenue"`
	AverageSatisfaction float64       `json:"average_satisfaction"`
	ActiveClientCount   int           `json:"active_client_count"`
	LessonCount         int           `json:"lesson_count"`
	RevenueByType       []TypeRevenue `json:"revenue_by_type"`
	RevenueByDate       []DateRevenue `json:"revenue_by_date"`
	AvailableTypes      []string      `json:"available_types"`
}

// Compute filters the dataset with sel and aggregates the result.
// AvailableTypes always reflects the full lesson collection.
func Compute(ds Dataset, sel FilterSelection) DerivedMetrics {
	m := Aggregate(FilterLessons(ds.Lessons, sel), ds.Clients)
	m.AvailableTypes = AvailableTypes(ds.Lessons)
	return m
}

// Aggregate derives the scalar metrics and both series from an already
// filtered lesson subset. AvailableTypes is left for the caller.
func Aggregate(filtered []LessonRecord, clients []ClientRecord) DerivedMetrics {
	m := DerivedMetrics{
		LessonCount:    len(filtered),
		RevenueByType:  make([]TypeRevenue, 0),
		RevenueByDate:  make([]DateRevenue, 0),
		AvailableTypes: make([]string, 0),
	}

	ids := make(map[string]struct{})
	// order of first client appearance keeps the satisfaction sum deterministic
	idOrder := make([]string, 0)
	typeIdx := make(map[string]int)
	dateIdx := make(map[string]int)
	dates := make([]Date, 0)

	for _, l := range filtered {
		m.TotalRevenue += l.Price

		if _, seen := ids[l.ClientID]; !seen {
			ids[l.ClientID] = struct{}{}
			idOrder = append(idOrder, l.ClientID)
		}

		if i, ok := typeIdx[l.Type]; ok {
			m.RevenueByType[i].Revenue += l.Price
		} else {
			typeIdx[l.Type] = len(m.RevenueByType)
			m.RevenueByType = append(m.RevenueByType, TypeRevenue{Type: l.Type, Revenue: l.Price})
		}

		if i, ok := dateIdx[l.RawDate]; ok {
			m.RevenueByDate[i].Revenue += l.Price
		} else {
			dateIdx[l.RawDate] = len(m.RevenueByDate)
			m.RevenueByDate = append(m.RevenueByDate, DateRevenue{Date: l.RawDate, Revenue: l.Price})
			dates = append(dates, l.Date)
		}
	}

	m.ActiveClientCount = len(ids)
	m.AverageSatisfaction = averageSatisfaction(idOrder, clients)
	sortByDate(m.RevenueByDate, dates)
	return m
}

// AvailableTypes returns the distinct lesson types in first-occurrence order.
func AvailableTypes(lessons []LessonRecord) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, l := range lessons {
		if _, ok := seen[l.Type]; ok {
			continue
		}
		seen[l.Type] = struct{}{}
		out = append(out, l.Type)
	}
	return out
}

// averageSatisfaction is the mean valid score of the given clients. Ids with
// no matching record or a NaN score contribute nothing; duplicate client ids
// resolve to the first record.
func averageSatisfaction(ids []string, clients []ClientRecord) float64 {
	if len(ids) == 0 {
		return 0
	}
	scores := make(map[string]float64, len(clients))
	for _, c := range clients {
		if _, dup := scores[c.ClientID]; dup {
			continue
		}
		scores[c.ClientID] = c.Satisfaction
	}
	var sum float64
	var n int
	for _, id := range ids {
		s, ok := scores[id]
		if !ok || math.IsNaN(s) {
			continue
		}
		sum += s
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// sortByDate orders entries ascending by calendar date; dates[i] is the parsed
// date of entries[i]. Ties keep insertion order.
func sortByDate(entries []DateRevenue, dates []Date) {
	idx := make([]int, len(entries))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return dates[idx[a]].Before(dates[idx[b]].Time)
	})
	sorted := make([]DateRevenue, len(entries))
	for i, j := range idx {
		sorted[i] = entries[j]
	}
	copy(entries, sorted)
}
