package ir

// NOTE: Run and TraceRecord are store-layer records, not part of the
// canonical document. Seq comes from the engine's logical clock.

// Run describes one execution of a document.
type Run struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DocumentHash  string `json:"document_hash"`
	IRVersion     string `json:"ir_version"`
	EngineVersion string `json:"engine_version"`
}

// TraceRecord is the observable outcome of one applied command.
//
// Running and Waiting are snapshots taken after the command, in the
// scenario's own order (authoring order for running intervals, sync order
// for waiting nodes). Error is empty when the command succeeded.
type TraceRecord struct {
	RunID   string   `json:"run_id"`
	Seq     int64    `json:"seq"`
	Kind    string   `json:"kind"`
	Target  string   `json:"target,omitempty"`
	Detail  Object   `json:"detail"`
	Running []string `json:"running"`
	Waiting []string `json:"waiting"`
	Error   string   `json:"error,omitempty"`
	Hash    string   `json:"hash"`
}

// ComputeHash returns the content hash of the record. Everything except
// Hash itself takes part, so a replayed write can be told apart from a
// conflicting one.
func (r TraceRecord) ComputeHash() (string, error) {
	body := Object{
		"target":  String(r.Target),
		"running": Strings(r.Running...),
		"waiting": Strings(r.Waiting...),
		"error":   String(r.Error),
	}
	if r.Detail != nil {
		body["detail"] = r.Detail
	}
	return TraceHash(r.RunID, r.Seq, r.Kind, body)
}
