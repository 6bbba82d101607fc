package deploy

// SyncPlan is the immutable result of comparing a source file listing
// against a destination view: three disjoint sets of relative paths.
// Every path in Deletes lies inside the destination root; a SyncPlan is
// never mutated once built.
type SyncPlan struct {
	creates []FileRecord
	updates []FileRecord
	deletes []FileRecord
}

// NewSyncPlan builds an immutable plan from the three sets computed by
// the sync engine. The slices are copied so the caller's backing arrays
// can be reused.
func NewSyncPlan(creates, updates, deletes []FileRecord) *SyncPlan {
	return &SyncPlan{
		creates: append([]FileRecord(nil), creates...),
		updates: append([]FileRecord(nil), updates...),
		deletes: append([]FileRecord(nil), deletes...),
	}
}

// Creates returns the files present in source but absent from the
// destination view.
func (p *SyncPlan) Creates() []FileRecord { return append([]FileRecord(nil), p.creates...) }

// Updates returns the files present in both, with source differing in
// size or strictly newer in mtime.
func (p *SyncPlan) Updates() []FileRecord { return append([]FileRecord(nil), p.updates...) }

// Deletes returns the destination files absent from source and not
// ignored.
func (p *SyncPlan) Deletes() []FileRecord { return append([]FileRecord(nil), p.deletes...) }

// IsEmpty reports whether the plan has no work at all.
func (p *SyncPlan) IsEmpty() bool {
	return len(p.creates) == 0 && len(p.updates) == 0 && len(p.deletes) == 0
}

// Tenant is one JSON configuration file under the seed directory; its
// WebID parameterizes per-tenant SQL via {{WEBID}}.
type Tenant struct {
	WebID      string
	ConfigPath string
	Raw        map[string]any
}
