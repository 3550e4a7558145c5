package compiler

import "github.com/roach88/timeline/internal/ir"

// docIndex resolves event references of a document. The start sync is
// always present, implicitly with one "<start>/0" event when not listed.
type docIndex struct {
	syncs     []ir.SyncSpec
	eventSync map[string]string // event id → sync id
	first     map[string]string // sync id → first event id
}

func indexDocument(doc *ir.Document) *docIndex {
	idx := &docIndex{
		eventSync: make(map[string]string),
		first:     make(map[string]string),
	}

	startID := doc.StartSyncID()
	hasStart := false
	for _, s := range doc.Syncs {
		if s.ID == startID {
			hasStart = true
		}
	}
	if !hasStart {
		idx.syncs = append(idx.syncs, ir.SyncSpec{ID: startID})
	}
	idx.syncs = append(idx.syncs, doc.Syncs...)

	for _, s := range idx.syncs {
		ids := s.EventIDs()
		if _, dup := idx.first[s.ID]; !dup {
			idx.first[s.ID] = ids[0]
		}
		for _, id := range ids {
			if _, dup := idx.eventSync[id]; !dup {
				idx.eventSync[id] = s.ID
			}
		}
	}
	return idx
}

// resolve maps a reference (event id, or sync id for its first event) to
// the owning sync and the event.
func (idx *docIndex) resolve(ref string) (syncID, eventID string, ok bool) {
	if s, found := idx.eventSync[ref]; found {
		return s, ref, true
	}
	if ev, found := idx.first[ref]; found {
		return ref, ev, true
	}
	return "", "", false
}
