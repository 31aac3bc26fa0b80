package carpark

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseLotType(t *testing.T) {
	tests := []struct {
		code string
		want LotType
	}{
		{"C", LotTypeCar},
		{"c", LotTypeCar},
		{" C ", LotTypeCar},
		{"Y", LotTypeMotorcycle},
		{"motorcycle", LotTypeMotorcycle},
		{"H", LotTypeHeavyVehicle},
		{"heavy vehicle", LotTypeHeavyVehicle},
		{"X", LotType("X")},
		{"", LotType("")},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ParseLotType(tt.code); got != tt.want {
				t.Errorf("ParseLotType(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestMerge_DedupesAcrossSources(t *testing.T) {
	now := time.Now()
	ura := Availability{
		Source:    "ura",
		FetchedAt: now,
		Lots: []Lot{
			{CarparkID: "A0004", Agency: AgencyURA, LotType: LotTypeCar, Available: 12},
			{CarparkID: "A0005", Agency: AgencyURA, LotType: LotTypeMotorcycle, Available: 3},
		},
	}
	datamall := Availability{
		Source:    "datamall",
		FetchedAt: now,
		Lots: []Lot{
			// Same carpark and lot type as the URA row; must lose.
			{CarparkID: "a0004", Agency: AgencyURA, LotType: LotTypeCar, Available: 10},
			{CarparkID: "BM29", Agency: AgencyHDB, LotType: LotTypeCar, Available: 77},
		},
	}

	got := Merge(ura, datamall)

	want := []Lot{
		{CarparkID: "A0004", Agency: AgencyURA, LotType: LotTypeCar, Available: 12},
		{CarparkID: "A0005", Agency: AgencyURA, LotType: LotTypeMotorcycle, Available: 3},
		{CarparkID: "BM29", Agency: AgencyHDB, LotType: LotTypeCar, Available: 77},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_SameCarparkDifferentLotTypes(t *testing.T) {
	snap := Availability{
		Source: "ura",
		Lots: []Lot{
			{CarparkID: "K0001", LotType: LotTypeCar, Available: 5},
			{CarparkID: "K0001", LotType: LotTypeMotorcycle, Available: 9},
		},
	}
	got := Merge(snap)
	if len(got) != 2 {
		t.Fatalf("expected both lot types kept, got %d records", len(got))
	}
}

func TestFilter(t *testing.T) {
	lots := []Lot{
		{CarparkID: "1", Agency: AgencyURA, LotType: LotTypeCar},
		{CarparkID: "2", Agency: AgencyHDB, LotType: LotTypeCar},
		{CarparkID: "3", Agency: AgencyLTA, LotType: LotTypeMotorcycle},
	}

	tests := []struct {
		name    string
		agency  Agency
		lotType LotType
		wantIDs []string
	}{
		{"no filter", "", "", []string{"1", "2", "3"}},
		{"by agency", AgencyHDB, "", []string{"2"}},
		{"by lot type", "", LotTypeCar, []string{"1", "2"}},
		{"both", AgencyURA, LotTypeCar, []string{"1"}},
		{"no match", AgencyLTA, LotTypeCar, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(lots, tt.agency, tt.lotType)
			ids := make([]string, 0, len(got))
			for _, l := range got {
				ids = append(ids, l.CarparkID)
			}
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Errorf("Filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" a0004 ", "A0004"},
		{"\u200Bbm29", "BM29"},
		{"\u200Ca0004\u200D", "A0004"},
		{"\uFEFFK0001", "K0001"},
		{"K0001", "K0001"},
	}
	for _, tt := range tests {
		if got := Token(tt.in); got != tt.want {
			t.Errorf("Token(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ALIWAL STREET", "Aliwal Street"},
		{"Suntec City", "Suntec City"}, // mixed case untouched
		{"  BUGIS JUNCTION ", "Bugis Junction"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.in); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
