package scheduling

import (
	"testing"

	"github.com/friendsincode/mimir_forum/internal/models"
)

func TestCalculatePriority(t *testing.T) {
	tests := []struct {
		name      string
		kind      models.StudentKind
		opp       models.OpportunityType
		committee bool
		want      int
	}{
		{
			name:      "internal committee member on long-form placement",
			kind:      models.StudentInternal,
			opp:       models.OpportunityPFE,
			committee: true,
			want:      181,
		},
		{
			name: "internal committee member on PFA scores the same",
			kind: models.StudentInternal,
			opp:  models.OpportunityPFA,
			committee: true,
			want: 181,
		},
		{
			name: "external student on observation",
			kind: models.StudentExternal,
			opp:  models.OpportunityStageObservation,
			want: 11,
		},
		{
			name: "external student with unknown opportunity falls to floor addend",
			kind: models.StudentExternal,
			opp:  models.OpportunityType("unknown-type"),
			want: 6,
		},
		{
			name: "internal student seeking employment",
			kind: models.StudentInternal,
			opp:  models.OpportunityEmploi,
			want: 71,
		},
		{
			name: "external committee member on employment",
			kind: models.StudentExternal,
			opp:  models.OpportunityEmploi,
			committee: true,
			want: 121,
		},
		{
			name: "internal student on PFE without committee status",
			kind: models.StudentInternal,
			opp:  models.OpportunityPFE,
			want: 81,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePriority(tt.kind, tt.opp, tt.committee)
			if got != tt.want {
				t.Errorf("CalculatePriority(%q, %q, %v) = %d, want %d", tt.kind, tt.opp, tt.committee, got, tt.want)
			}

			// Identical input must always yield the identical score.
			if again := CalculatePriority(tt.kind, tt.opp, tt.committee); again != got {
				t.Errorf("CalculatePriority not deterministic: %d then %d", got, again)
			}
		})
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		priority int
		want     PriorityBand
	}{
		{181, BandHigh},
		{80, BandHigh},
		{79, BandMedium},
		{50, BandMedium},
		{49, BandLow},
		{6, BandLow},
	}

	for _, tt := range tests {
		if got := BandFor(tt.priority); got != tt.want {
			t.Errorf("BandFor(%d) = %q, want %q", tt.priority, got, tt.want)
		}
	}
}
