package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClaimRecord_Informative(t *testing.T) {
	assert.True(t, ClaimRecord{Incurred: 1}.Informative())
	assert.False(t, ClaimRecord{Incurred: 0}.Informative())
	assert.False(t, ClaimRecord{Incurred: -100}.Informative())
}

func TestClaimRecord_Unliquidated(t *testing.T) {
	assert.True(t, ClaimRecord{Paid: 0, Reserved: 500}.Unliquidated())
	assert.False(t, ClaimRecord{Paid: 500, Reserved: 0}.Unliquidated())
	// A partial payment liquidates the claim even with a reserve left open.
	assert.False(t, ClaimRecord{Paid: 200, Reserved: 300}.Unliquidated())
	assert.False(t, ClaimRecord{}.Unliquidated())
}

func TestClaimRecord_OccurrenceYear(t *testing.T) {
	occurred := time.Date(2021, time.May, 3, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2022, ClaimRecord{Year: 2022, OccurredAt: &occurred}.OccurrenceYear())
	assert.Equal(t, 2021, ClaimRecord{OccurredAt: &occurred}.OccurrenceYear())
	assert.Equal(t, 0, ClaimRecord{}.OccurrenceYear())
}

func TestTIVResult_Resolved(t *testing.T) {
	assert.True(t, TIVResult{Total: 1000, Strategy: "summary_cell"}.Resolved())
	assert.False(t, TIVResult{}.Resolved())
}

func TestClassifyPeril(t *testing.T) {
	tests := []struct {
		cause string
		want  PerilCategory
	}{
		{"Sismo magnitud 7.1", PerilEarthquake},
		{"EARTHQUAKE DAMAGE", PerilEarthquake},
		{"Daños por minería ilegal", PerilMaliciousDamage},
		{"Incendio en planta", PerilFire},
		{"Inundación por lluvias", PerilFlood},
		{"Explosión de caldera", PerilExplosion},
		{"Huracán Otis", PerilWindstorm},
		{"Robo de mercancía", PerilTheft},
		{"Causa desconocida", PerilOther},
		{"", PerilOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyPeril(tt.cause), tt.cause)
	}
}
