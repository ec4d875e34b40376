package dialog

// renumber closes the gap left by removing position pos from kind's list.
// This is the only place stored indices are shifted.
func (d *Dialog) renumber(kind Kind, pos int) {
	l := d.list(kind)
	for i := pos; i < len(l); i++ {
		l[i].pos = i
	}
	d.eachEdge(func(_ *Node, _ int, e *Edge) {
		if e.TargetKind == kind && e.Index > pos {
			e.Index--
		}
	})
}

// RecalculateIndices re-derives every edge's stored index from its cached
// target and returns how many edges changed. It is idempotent.
//
//   - cached target still stored: index and kind follow the target
//   - no cache: the cache is resolved from an in-range index
//   - cached target no longer stored: left alone for ValidateIndices to report
func RecalculateIndices(d *Dialog) int {
	changed := 0
	d.eachEdge(func(_ *Node, _ int, e *Edge) {
		switch {
		case e.Target == nil:
			if t := d.lookup(e.TargetKind, e.Index); t != nil {
				e.Target = t
				d.links.Register(e)
				changed++
			}
		case d.Contains(e.Target):
			if e.Index != e.Target.pos || e.TargetKind != e.Target.Kind {
				e.TargetKind, e.Index = e.Target.Kind, e.Target.pos
				changed++
			}
		}
	})
	return changed
}

// ValidateIndices checks every edge without mutating anything. An empty
// result means the dialog can be flattened as is.
func ValidateIndices(d *Dialog) []*IntegrityError {
	var errs []*IntegrityError
	d.eachEdge(func(owner *Node, i int, e *Edge) {
		l := d.list(e.TargetKind)
		switch {
		case e.Index < 0 || e.Index >= len(l):
			errs = append(errs, integrityf(DanglingIndex, owner, i,
				"%s index %d out of range (len %d)", e.TargetKind, e.Index, len(l)))
		case e.Target != nil && l[e.Index] != e.Target:
			errs = append(errs, integrityf(StaleCache, owner, i,
				"index %d does not hold the cached target", e.Index))
		}
		if owner == nil {
			if e.TargetKind != SpeakerLine {
				errs = append(errs, integrityf(RootKind, nil, i,
					"root edge points at a %s line", e.TargetKind))
			}
		} else if e.TargetKind != owner.Kind.Other() {
			errs = append(errs, integrityf(Alternation, owner, i,
				"%s line points at a %s line", owner.Kind, e.TargetKind))
		}
	})
	return errs
}

// Repair rebuilds the link registry, recalculates every index and returns
// whatever ValidateIndices still reports.
func Repair(d *Dialog) []*IntegrityError {
	defer d.begin()()
	d.links.rebuild(d)
	RecalculateIndices(d)
	return ValidateIndices(d)
}
