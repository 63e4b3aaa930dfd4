package query

import (
	"testing"

	"github.com/maruel/recordbook/internal/kvstore"
	"github.com/maruel/recordbook/internal/models"
	"github.com/maruel/recordbook/internal/storage"
)

func rec(id string, fields map[string]any) models.Record {
	return models.Record{ID: id, Fields: fields}
}

func ids(rows []models.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func sample() []models.Record {
	return []models.Record{
		rec("1", map[string]any{"code": "A1", "status": "active", "amount": float64(100)}),
		rec("2", map[string]any{"code": "B1", "status": "paused", "amount": float64(50)}),
	}
}

func TestRunFilterComposition(t *testing.T) {
	res := Run(sample(), State{Query: "a1", Status: "active"})
	if got := ids(res.Rows); len(got) != 1 || got[0] != "1" {
		t.Errorf("got rows %v, want [1]", got)
	}
	if res.Totals != (Totals{Count: 1, Amount: 100}) {
		t.Errorf("got totals %+v", res.Totals)
	}
}

func TestRunAmountExponent(t *testing.T) {
	records := []models.Record{
		rec("big", map[string]any{"amount": 1e21}),
		rec("tiny", map[string]any{"amount": 1e-7}),
		rec("plain", map[string]any{"amount": float64(21)}),
	}
	for q, want := range map[string]string{"e+21": "big", "1e-7": "tiny"} {
		if got := ids(Run(records, State{Query: q}).Rows); len(got) != 1 || got[0] != want {
			t.Errorf("query %q: got %v, want [%s]", q, got, want)
		}
	}
}

func TestRun(t *testing.T) {
	records := []models.Record{
		rec("1", map[string]any{"code": "ORD-1001", "customer": "Cook Door", "status": "active", "amount": float64(4200), "note": "Rush", "phone": "+2011"}),
		rec("2", map[string]any{"code": "ORD-1002", "customer": "Asil Co.", "status": "paused", "amount": "2100"}),
		rec("3", map[string]any{"code": "ORD-1003", "status": "Active", "channel": "Offline", "date": "2025-09-01"}),
		rec("4", map[string]any{}),
	}
	tests := []struct {
		name   string
		state  State
		want   []string
		amount float64
	}{
		{"all", State{}, []string{"1", "2", "3", "4"}, 6300},
		{"status all", State{Status: StatusAll}, []string{"1", "2", "3", "4"}, 6300},
		{"status exact", State{Status: "active"}, []string{"1"}, 4200},
		{"status case sensitive", State{Status: "Active"}, []string{"3"}, 0},
		{"customer", State{Query: "cook"}, []string{"1"}, 4200},
		{"upper query", State{Query: "ASIL"}, []string{"2"}, 2100},
		{"amount as text", State{Query: "420"}, []string{"1"}, 4200},
		{"phone", State{Query: "+2011"}, []string{"1"}, 4200},
		{"note", State{Query: "rush"}, []string{"1"}, 4200},
		{"channel not searched", State{Query: "offline"}, nil, 0},
		{"date not searched", State{Query: "2025"}, nil, 0},
		{"code prefix", State{Query: "ord-100"}, []string{"1", "2", "3"}, 6300},
		{"both", State{Query: "ord", Status: "paused"}, []string{"2"}, 2100},
		{"unknown status", State{Status: "closed"}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Run(records, tt.state)
			got := ids(res.Rows)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
			if res.Totals.Count != len(tt.want) || res.Totals.Amount != tt.amount {
				t.Errorf("got totals %+v, want count %d amount %v", res.Totals, len(tt.want), tt.amount)
			}
		})
	}
}

func TestTotal(t *testing.T) {
	records := []models.Record{
		rec("1", map[string]any{"amount": 0.1}),
		rec("2", map[string]any{"amount": 0.2}),
		rec("3", map[string]any{"amount": "abc"}),
		rec("4", map[string]any{}),
	}
	if got := Total(records); got != (Totals{Count: 4, Amount: 0.3}) {
		t.Errorf("got %+v, want count 4 amount 0.3", got)
	}
	if got := Total(nil); got != (Totals{}) {
		t.Errorf("empty: got %+v", got)
	}
}

func TestCountByStatus(t *testing.T) {
	records := sample()
	if got := CountByStatus(records, "active"); got != 1 {
		t.Errorf("active: got %d, want 1", got)
	}
	if got := CountByStatus(records, StatusAll); got != 2 {
		t.Errorf("all: got %d, want 2", got)
	}
}

func TestView(t *testing.T) {
	store := storage.NewRecordStore(&kvstore.Memory{}, sample())
	v := NewView(store, State{Status: "active"})
	if got := v.Result().Totals; got != (Totals{Count: 1, Amount: 100}) {
		t.Errorf("initial: got %+v", got)
	}
	var seen []Totals
	v.OnChange(func(r Result) { seen = append(seen, r.Totals) })

	store.Create(map[string]any{"code": "C1", "status": "active", "amount": float64(25)})
	if got := v.Result().Totals; got != (Totals{Count: 2, Amount: 125}) {
		t.Errorf("after create: got %+v", got)
	}
	if rows := v.Result().Rows; rows[0].Text("code") != "C1" {
		t.Errorf("newest record should come first, got %q", rows[0].Text("code"))
	}

	v.SetState(State{Query: "b1"})
	if got := v.Result().Totals; got != (Totals{Count: 1, Amount: 50}) {
		t.Errorf("after SetState: got %+v", got)
	}
	if v.State().Query != "b1" {
		t.Errorf("got state %+v", v.State())
	}
	if len(seen) != 2 {
		t.Errorf("got %d notifications, want 2", len(seen))
	}
}
