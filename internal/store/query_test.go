package store

import (
	"reflect"
	"strings"
	"testing"
)

func TestWhereClause_Empty(t *testing.T) {
	where, args := Filters{}.whereClause()
	if where != "" || args != nil {
		t.Errorf("whereClause() = (%q, %v), want empty", where, args)
	}
}

func TestWhereClause_AllFilters(t *testing.T) {
	f := Filters{
		StartDate: "2024-03-01",
		EndDate:   "2024-03-31",
		Locations: []string{"loc_1", "loc_2"},
		OrderType: "in_store",
		Daypart:   "Morning",
		Category:  "Drinks",
		StaffID:   "E1",
	}
	where, args := f.whereClause()

	if !strings.HasPrefix(where, "WHERE ") {
		t.Fatalf("whereClause() = %q, want WHERE prefix", where)
	}
	wantArgs := []any{"2024-03-01", "2024-03-31", []string{"loc_1", "loc_2"}, "in_store", "Morning", "Drinks", "E1"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}

	// Every filter value must be a placeholder, never inline text.
	for _, v := range []string{"2024-03-01", "loc_1", "in_store", "Morning", "Drinks", "E1"} {
		if strings.Contains(where, v) {
			t.Errorf("filter value %q interpolated into SQL: %s", v, where)
		}
	}
	for _, ph := range []string{"$1", "$2", "$3", "$4", "$5", "$6", "$7"} {
		if !strings.Contains(where, ph) {
			t.Errorf("placeholder %s missing from clause: %s", ph, where)
		}
	}
}

func TestWhereClause_DateRangeRequiresBothEnds(t *testing.T) {
	where, args := Filters{StartDate: "2024-03-01"}.whereClause()
	if where != "" || len(args) != 0 {
		t.Errorf("whereClause() = (%q, %v), want empty for a half-open range", where, args)
	}
}

func TestWhereClause_ExtraConditions(t *testing.T) {
	where, args := Filters{Daypart: "Evening"}.whereClause("NOT fs.voided")

	if !strings.Contains(where, "NOT fs.voided AND ") {
		t.Errorf("whereClause() = %q, want extra condition first", where)
	}
	if len(args) != 1 || args[0] != "Evening" {
		t.Errorf("args = %v, want [Evening]", args)
	}
}

func TestWhereClause_ExtraOnly(t *testing.T) {
	where, args := Filters{}.whereClause("NOT fs.voided")
	if where != "WHERE NOT fs.voided" {
		t.Errorf("whereClause() = %q, want WHERE NOT fs.voided", where)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}
