package visit

import "sort"

// EncounterConfig describes how a record type logs into an active visit.
type EncounterConfig struct {
	EncounterType string
	FormType      string
}

// Registry maps a clinical-record type tag to its encounter configuration.
// Record types not present in the registry do not generate encounters.
type Registry struct {
	configs map[string]EncounterConfig
}

func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]EncounterConfig)}
}

// DefaultRegistry returns a registry with the record types owned by this
// module pre-registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(RecordTypeVisitNote, EncounterConfig{
		EncounterType: "visit_note",
		FormType:      "visit_note_form",
	})
	return r
}

func (r *Registry) Register(recordType string, cfg EncounterConfig) {
	r.configs[recordType] = cfg
}

func (r *Registry) Lookup(recordType string) (EncounterConfig, bool) {
	cfg, ok := r.configs[recordType]
	return cfg, ok
}

// RecordTypes returns the registered tags in stable order.
func (r *Registry) RecordTypes() []string {
	types := make([]string, 0, len(r.configs))
	for t := range r.configs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
