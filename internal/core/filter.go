package core

// Matcher evaluates one FilterSelection against lessons. Bounds are parsed
// once at construction.
type Matcher struct {
	typ   string
	start Date
	end   Date
	ok    bool
}

// NewMatcher builds a Matcher. When either bound fails to parse the matcher
// matches nothing and the parse error is returned alongside it.
func NewMatcher(sel FilterSelection) (Matcher, error) {
	m := Matcher{typ: sel.Type}
	start, err := ParseDate(sel.Start)
	if err != nil {
		return m, err
	}
	end, err := ParseDate(sel.End)
	if err != nil {
		return m, err
	}
	m.start, m.end, m.ok = start, end, true
	return m, nil
}

// Match reports whether the lesson has the selected type (any when empty)
// and a date strictly after start and strictly before end. Lessons dated on
// either boundary day do not match.
func (m Matcher) Match(l LessonRecord) bool {
	if !m.ok || !l.Valid() {
		return false
	}
	if m.typ != "" && l.Type != m.typ {
		return false
	}
	return l.Date.After(m.start.Time) && l.Date.Before(m.end.Time)
}

// FilterLessons returns the lessons matching sel, preserving input order.
// Unparseable bounds or an inverted range yield an empty result.
func FilterLessons(lessons []LessonRecord, sel FilterSelection) []LessonRecord {
	out := make([]LessonRecord, 0)
	m, err := NewMatcher(sel)
	if err != nil {
		return out
	}
	for _, l := range lessons {
		if m.Match(l) {
			out = append(out, l)
		}
	}
	return out
}
