package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUrgencyLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    UrgencyLevel
		wantErr bool
	}{
		{name: "lowercase", input: "high", want: UrgencyHigh},
		{name: "mixed case", input: "Critical", want: UrgencyCritical},
		{name: "uppercase", input: "LOW", want: UrgencyLow},
		{name: "surrounding whitespace", input: "  medium ", want: UrgencyMedium},
		{name: "unknown value", input: "urgent", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUrgencyLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKnowledgeCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    KnowledgeCategory
		wantErr bool
	}{
		{name: "lowercase", input: "technical", want: CategoryTechnical},
		{name: "title case", input: "Policy", want: CategoryPolicy},
		{name: "uppercase", input: "REGULATORY", want: CategoryRegulatory},
		{name: "unknown value", input: "misc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKnowledgeCategory(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUrgencyLevelRank(t *testing.T) {
	// Severity is totally ordered: low < medium < high < critical.
	assert.Less(t, UrgencyLow.Rank(), UrgencyMedium.Rank())
	assert.Less(t, UrgencyMedium.Rank(), UrgencyHigh.Rank())
	assert.Less(t, UrgencyHigh.Rank(), UrgencyCritical.Rank())
}

func TestUrgencyLevelRequiresAction(t *testing.T) {
	assert.False(t, UrgencyLow.RequiresAction())
	assert.False(t, UrgencyMedium.RequiresAction())
	assert.True(t, UrgencyHigh.RequiresAction())
	assert.True(t, UrgencyCritical.RequiresAction())
}
