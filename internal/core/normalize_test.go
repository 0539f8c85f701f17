package core

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestNormalizeLessonCoercion(t *testing.T) {
	raw := []RawRecord{
		{"id_cliente": 42.0, "date": "2025-01-05", "price": "100.50", "tipo": "piano"},
		{"id_cliente": json.Number("7"), "date": "2025-01-06", "price": json.Number("20"), "tipo": "canto"},
		{"clientId": "B", "date": "2025-01-07", "price": 30, "type": "X"},
		{"id_cliente": "C", "date": "bad", "price": "abc", "tipo": "X"},
		{"id_cliente": "D", "date": "2025-01-08", "price": -5.0, "tipo": "X"},
		{"id_cliente": "E", "date": "2025-01-09", "tipo": "X"},
	}
	got := NormalizeLessons(raw)
	if len(got) != len(raw) {
		t.Fatalf("no record may be dropped: got %d", len(got))
	}
	checks := []struct {
		id    string
		price float64
		valid bool
		typ   string
	}{
		{"42", 100.5, true, "piano"},
		{"7", 20, true, "canto"},
		{"B", 30, true, "X"},
		{"C", 0, false, "X"},
		{"D", 0, true, "X"},
		{"E", 0, true, "X"},
	}
	for i, c := range checks {
		l := got[i]
		if l.ClientID != c.id || l.Price != c.price || l.Valid() != c.valid || l.Type != c.typ {
			t.Fatalf("record %d = %+v, want %+v", i, l, c)
		}
	}
}

func TestNormalizeClientScores(t *testing.T) {
	got := NormalizeClients([]RawRecord{
		{"ID_Cliente": 1.0, "NPS": 9.0, "Cidade": "Recife"},
		{"ID_Cliente": "2", "NPS": "7"},
		{"ID_Cliente": "3", "NPS": ""},
		{"ID_Cliente": "4", "NPS": nil},
		{"ID_Cliente": "5"},
		{"ID_Cliente": "6", "NPS": "NaN"},
	})
	if got[0].ClientID != "1" || got[0].Satisfaction != 9 {
		t.Fatalf("client 0 = %+v", got[0])
	}
	if got[0].Attributes["Cidade"] != "Recife" {
		t.Fatalf("attributes not carried through: %+v", got[0].Attributes)
	}
	if _, ok := got[0].Attributes["NPS"]; ok {
		t.Fatalf("score must not be duplicated into attributes")
	}
	if got[1].Satisfaction != 7 {
		t.Fatalf("client 1 = %+v", got[1])
	}
	for _, c := range got[2:] {
		if !math.IsNaN(c.Satisfaction) {
			t.Fatalf("client %s expected NaN score, got %v", c.ClientID, c.Satisfaction)
		}
	}
}

func TestNormalizeReport(t *testing.T) {
	_, rep := Normalize(
		[]RawRecord{
			{"id_cliente": "A", "date": "2025-01-05", "price": 1},
			{"id_cliente": "A", "date": "nope", "price": "x"},
			{},
		},
		[]RawRecord{{"ID_Cliente": "A"}, {"ID_Cliente": "B", "NPS": 3}, nil},
	)
	want := NormalizeReport{Lessons: 3, Clients: 3, ZeroedPrices: 2, InvalidDates: 2, InvalidScores: 2, EmptyRecords: 2}
	if rep != want {
		t.Fatalf("report = %+v, want %+v", rep, want)
	}
}

func TestJoinAcrossIDRepresentations(t *testing.T) {
	decode := func(doc string) []RawRecord {
		t.Helper()
		var out []RawRecord
		dec := json.NewDecoder(strings.NewReader(doc))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			t.Fatal(err)
		}
		return out
	}
	tests := []struct {
		name    string
		lessons string
		clients string
	}{
		{"number and string", `[{"id_cliente": 15, "date": "2025-01-10", "price": 80, "tipo": "X"}]`, `[{"ID_Cliente": "15", "NPS": 10}]`},
		{"decimal and integer", `[{"id_cliente": 15.0, "date": "2025-01-10", "price": 80, "tipo": "X"}]`, `[{"ID_Cliente": 15, "NPS": 10}]`},
		{"exponent and string", `[{"id_cliente": 1.5e1, "date": "2025-01-10", "price": 80, "tipo": "X"}]`, `[{"ID_Cliente": "15", "NPS": 10}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, _ := Normalize(decode(tt.lessons), decode(tt.clients))
			if m := Compute(ds, DefaultFilter()); m.AverageSatisfaction != 10 {
				t.Fatalf("ids must join, got lesson %q client %q metrics %+v",
					ds.Lessons[0].ClientID, ds.Clients[0].ClientID, m)
			}
		})
	}
}

func TestCoerceString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{3.0, "3"},
		{3.25, "3.25"},
		{int64(12), "12"},
		{true, "true"},
		{json.Number("0012"), "0012"},
		{json.Number("15.0"), "15"},
		{json.Number("2.50"), "2.5"},
		{json.Number("123456789012345678901234"), "123456789012345678901234"},
	}
	for _, tc := range cases {
		if got := CoerceString(tc.in); got != tc.want {
			t.Fatalf("CoerceString(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
