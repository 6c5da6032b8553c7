package visit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	scheduled := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		at   time.Time
		want Punctuality
	}{
		{"exactly on time", scheduled, OnTime},
		{"ten minutes late is still on time", scheduled.Add(10 * time.Minute), OnTime},
		{"just past the window", scheduled.Add(10*time.Minute + time.Second), Late},
		{"ten minutes early is still on time", scheduled.Add(-10 * time.Minute), OnTime},
		{"just before the window", scheduled.Add(-10*time.Minute - time.Second), Early},
		{"an hour late", scheduled.Add(time.Hour), Late},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(&scheduled, tc.at))
		})
	}

	assert.Equal(t, Unknown, Classify(nil, scheduled))
}

func TestVisitTypeIsValid(t *testing.T) {
	for _, vt := range []VisitType{TypeFacilityVisit, TypeHomeVisit, TypeOPDVisit, TypeOfflineVisit} {
		assert.True(t, vt.IsValid(), string(vt))
	}
	assert.False(t, VisitType("walk_in").IsValid())
	assert.False(t, VisitType("").IsValid())
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	cfg, ok := r.Lookup(RecordTypeVisitNote)
	assert.True(t, ok)
	assert.Equal(t, "visit_note", cfg.EncounterType)
	assert.Equal(t, "visit_note_form", cfg.FormType)

	_, ok = r.Lookup("prescription")
	assert.False(t, ok)
}
