package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Source field names. The first key present wins.
var (
	LessonClientKeys = []string{"id_cliente", "clientId", "client_id"}
	LessonDateKeys   = []string{"date", "data"}
	LessonPriceKeys  = []string{"price", "preco"}
	LessonTypeKeys   = []string{"tipo", "type"}

	ClientIDKeys    = []string{"ID_Cliente", "clientId", "client_id", "id"}
	ClientScoreKeys = []string{"NPS", "satisfactionScore", "nps"}
)

// NormalizeReport counts the fields that had to be coerced during
// normalization. Records are never dropped.
type NormalizeReport struct {
	Lessons       int
	Clients       int
	ZeroedPrices  int
	InvalidDates  int
	InvalidScores int
	// EmptyRecords counts records with no fields, such as array elements
	// that were not objects.
	EmptyRecords int
}

// Normalize coerces both raw collections into a Dataset.
//
// Invalid prices are zeroed and the lesson is kept; unparseable dates leave a
// zero Date so the filter excludes the lesson; invalid scores become NaN.
func Normalize(lessons, clients []RawRecord) (Dataset, NormalizeReport) {
	ds := Dataset{
		Lessons: make([]LessonRecord, 0, len(lessons)),
		Clients: make([]ClientRecord, 0, len(clients)),
	}
	var rep NormalizeReport
	for _, raw := range lessons {
		if len(raw) == 0 {
			rep.EmptyRecords++
		}
		l, priceOK := normalizeLesson(raw)
		if !priceOK {
			rep.ZeroedPrices++
		}
		if !l.Valid() {
			rep.InvalidDates++
		}
		ds.Lessons = append(ds.Lessons, l)
	}
	for _, raw := range clients {
		if len(raw) == 0 {
			rep.EmptyRecords++
		}
		c := normalizeClient(raw)
		if math.IsNaN(c.Satisfaction) {
			rep.InvalidScores++
		}
		ds.Clients = append(ds.Clients, c)
	}
	rep.Lessons = len(ds.Lessons)
	rep.Clients = len(ds.Clients)
	return ds, rep
}

// NormalizeLessons coerces raw lesson objects into LessonRecords.
func NormalizeLessons(raw []RawRecord) []LessonRecord {
	out := make([]LessonRecord, 0, len(raw))
	for _, r := range raw {
		l, _ := normalizeLesson(r)
		out = append(out, l)
	}
	return out
}

// NormalizeClients coerces raw client objects into ClientRecords.
func NormalizeClients(raw []RawRecord) []ClientRecord {
	out := make([]ClientRecord, 0, len(raw))
	for _, r := range raw {
		out = append(out, normalizeClient(r))
	}
	return out
}

func normalizeLesson(raw RawRecord) (LessonRecord, bool) {
	l := LessonRecord{
		ClientID: CoerceString(raw.First(LessonClientKeys...)),
		RawDate:  CoerceString(raw.First(LessonDateKeys...)),
		Type:     CoerceString(raw.First(LessonTypeKeys...)),
	}
	if d, err := ParseDate(l.RawDate); err == nil {
		l.Date = d
	}
	price, ok := CoerceFloat(raw.First(LessonPriceKeys...))
	if !ok || price < 0 {
		return l, false
	}
	l.Price = price
	return l, true
}

func normalizeClient(raw RawRecord) ClientRecord {
	c := ClientRecord{
		ClientID:     CoerceString(raw.First(ClientIDKeys...)),
		Satisfaction: math.NaN(),
	}
	if score, ok := CoerceFloat(raw.First(ClientScoreKeys...)); ok {
		c.Satisfaction = score
	}
	c.Attributes = ClientAttributes(raw)
	return c
}

// ClientAttributes returns every field of a raw client except the id and
// score, or nil when nothing else is present.
func ClientAttributes(raw RawRecord) map[string]any {
	var attrs map[string]any
	for k, v := range raw {
		if contains(ClientIDKeys, k) || contains(ClientScoreKeys, k) {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]any, len(raw))
		}
		attrs[k] = v
	}
	return attrs
}

// First returns the value of the first key present in the record.
func (r RawRecord) First(keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			return v
		}
	}
	return nil
}

func contains(keys []string, k string) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}

// CoerceString renders any scalar as a string. Numbers render without a
// trailing ".0" so 42 and "42" join.
func CoerceString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		// 15.0 and 15 must join; integer literals keep their exact digits.
		if !strings.ContainsAny(x.String(), ".eE") {
			return x.String()
		}
		if f, err := x.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// CoerceFloat returns v as a finite number, or false when it is not one.
func CoerceFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	case []byte:
		return CoerceFloat(string(x))
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
