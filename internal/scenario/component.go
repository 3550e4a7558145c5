package scenario

// Component walks.
//
// A component is the maximal set of syncs reachable from one another through
// interval adjacency, in either direction. Walks use the scenario's scratch
// stack and visited cache; starting a walk while another is in progress (for
// example from an Observer callback) fails with ErrCodeReentrantWalk.

func (s *Scenario) beginWalk() error {
	if s.walking {
		return &ExecutionError{Code: ErrCodeReentrantWalk, Message: "graph walk started inside another graph walk"}
	}
	s.walking = true
	s.visitStack = s.visitStack[:0]
	clear(s.visitCache)
	return nil
}

func (s *Scenario) endWalk() {
	s.walking = false
	s.visitStack = s.visitStack[:0]
}

// visit pushes n onto the walk stack unless it was already seen.
func (s *Scenario) visit(n *TimeSync) {
	if _, seen := s.visitCache[n.id]; seen {
		return
	}
	s.visitCache[n.id] = struct{}{}
	s.visitStack = append(s.visitStack, n)
}

func (s *Scenario) pop() *TimeSync {
	last := len(s.visitStack) - 1
	n := s.visitStack[last]
	s.visitStack[last] = nil
	s.visitStack = s.visitStack[:last]
	return n
}

// ResetComponent tears down the whole component containing n: every sync in
// it is reset and every adjacent interval is stopped and evicted from the
// running set, upstream and downstream alike. Calling it twice is the same as
// calling it once.
func (s *Scenario) ResetComponent(n *TimeSync) error {
	if n == nil || s.syncIndex[n.id] != n {
		return unknownSync(syncIDOf(n))
	}
	if err := s.beginWalk(); err != nil {
		return err
	}
	defer s.endWalk()

	syncs, stopped := 0, 0
	s.visit(n)
	for len(s.visitStack) > 0 {
		cur := s.pop()

		cur.Reset()
		syncs++
		for _, ev := range cur.events {
			for _, itv := range ev.previous {
				if s.stopInterval(itv) {
					stopped++
				}
				s.visit(itv.start.sync)
			}
			for _, itv := range ev.next {
				if s.stopInterval(itv) {
					stopped++
				}
				s.visit(itv.end.sync)
			}
		}
	}

	s.observer.OnComponentReset(n.id, syncs, stopped)
	return nil
}

// Component returns the syncs of n's component in node order without
// changing any state.
func (s *Scenario) Component(n *TimeSync) ([]*TimeSync, error) {
	if n == nil || s.syncIndex[n.id] != n {
		return nil, unknownSync(syncIDOf(n))
	}
	if err := s.beginWalk(); err != nil {
		return nil, err
	}
	defer s.endWalk()

	s.collectComponent(n)
	return s.syncsIn(s.visitCache), nil
}

// collectComponent fills the visited cache with n's component. Must run
// between beginWalk and endWalk.
func (s *Scenario) collectComponent(n *TimeSync) {
	s.visit(n)
	for len(s.visitStack) > 0 {
		cur := s.pop()
		for _, ev := range cur.events {
			for _, itv := range ev.previous {
				s.visit(itv.start.sync)
			}
			for _, itv := range ev.next {
				s.visit(itv.end.sync)
			}
		}
	}
}

// ResetAllComponentsExcept is used once n's branch is confirmed: every sync
// outside n's component that still shows activity has its own component
// rolled back with ResetComponent. Components with no activity are left
// untouched.
func (s *Scenario) ResetAllComponentsExcept(n *TimeSync) error {
	if n == nil || s.syncIndex[n.id] != n {
		return unknownSync(syncIDOf(n))
	}
	if err := s.beginWalk(); err != nil {
		return err
	}
	s.collectComponent(n)
	foreign := make([]*TimeSync, 0, len(s.nodes))
	for _, node := range s.nodes {
		if _, in := s.visitCache[node.id]; !in {
			foreign = append(foreign, node)
		}
	}
	s.endWalk()

	for _, node := range foreign {
		if !isComponentLive(node) {
			continue
		}
		if err := s.ResetComponent(node); err != nil {
			return err
		}
	}
	return nil
}

// isComponentLive reports whether node carries in-flight activity: it is
// being triggered or one of its adjacent intervals runs. A single live node
// marks its whole component live.
func isComponentLive(node *TimeSync) bool {
	if node.IsBeingTriggered() {
		return true
	}
	return node.hasRunningNeighbour()
}

// ResetSubgraph resets the given syncs and stops the given intervals,
// evicting them from the running set and the end-date map. Entities that are
// not part of the scenario are skipped.
func (s *Scenario) ResetSubgraph(syncs []*TimeSync, intervals []*TimeInterval) {
	for _, ts := range syncs {
		if ts != nil && s.syncIndex[ts.id] == ts {
			ts.Reset()
		}
	}
	for _, itv := range intervals {
		if itv != nil && s.itvIndex[itv.id] == itv {
			s.stopInterval(itv)
		}
	}
}
