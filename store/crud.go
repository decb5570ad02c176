package store

import "github.com/caseworks/casesync/model"

// update applies fn to a private copy of the snapshot under the lock,
// installs the result, then notifies subscribers and fires the sync
// trigger. Concurrent helpers never lose updates. fn returns false to
// abort without writing.
func (s *Store) update(fn func(snap *model.Snapshot) bool) bool {
	s.mu.Lock()
	next := s.snapshot.Clone()
	if !fn(next) {
		s.mu.Unlock()
		return false
	}
	s.snapshot = *next.Clone()
	subs := append([]subscription(nil), s.subs...)
	onWrite := s.onWrite
	s.mu.Unlock()

	for _, sub := range subs {
		s.deliver(sub, next)
	}
	if onWrite != nil {
		onWrite(next.Clone())
	}
	return true
}

// AddFamily appends a family record.
func (s *Store) AddFamily(f model.Family) {
	s.update(func(snap *model.Snapshot) bool {
		snap.Families = append(snap.Families, f)
		return true
	})
}

// UpdateFamily replaces the family with the same ID. Records are updated
// by full-record replacement; there are no partial patches at this
// layer. Returns false if no such family exists.
func (s *Store) UpdateFamily(f model.Family) bool {
	return s.update(func(snap *model.Snapshot) bool {
		for i := range snap.Families {
			if snap.Families[i].ID == f.ID {
				snap.Families[i] = f
				return true
			}
		}
		return false
	})
}

// DeleteFamily removes the family and all members, visits, and
// deliveries referencing it in a single atomic write.
func (s *Store) DeleteFamily(familyID string) {
	s.update(func(snap *model.Snapshot) bool {
		snap.DeleteFamily(familyID)
		return true
	})
}

// AddMember appends a household member.
func (s *Store) AddMember(m model.Member) {
	s.update(func(snap *model.Snapshot) bool {
		snap.Members = append(snap.Members, m)
		return true
	})
}

// UpdateMember replaces the member with the same ID.
func (s *Store) UpdateMember(m model.Member) bool {
	return s.update(func(snap *model.Snapshot) bool {
		for i := range snap.Members {
			if snap.Members[i].ID == m.ID {
				snap.Members[i] = m
				return true
			}
		}
		return false
	})
}

// DeleteMember removes a member record.
func (s *Store) DeleteMember(memberID string) {
	s.update(func(snap *model.Snapshot) bool {
		out := snap.Members[:0]
		for _, m := range snap.Members {
			if m.ID != memberID {
				out = append(out, m)
			}
		}
		snap.Members = out
		return true
	})
}

// AddVisit appends a visit record.
func (s *Store) AddVisit(v model.Visit) {
	s.update(func(snap *model.Snapshot) bool {
		snap.Visits = append(snap.Visits, v)
		return true
	})
}

// UpdateVisit replaces the visit with the same ID.
func (s *Store) UpdateVisit(v model.Visit) bool {
	return s.update(func(snap *model.Snapshot) bool {
		for i := range snap.Visits {
			if snap.Visits[i].ID == v.ID {
				snap.Visits[i] = v
				return true
			}
		}
		return false
	})
}

// DeleteVisit removes a visit record.
func (s *Store) DeleteVisit(visitID string) {
	s.update(func(snap *model.Snapshot) bool {
		out := snap.Visits[:0]
		for _, v := range snap.Visits {
			if v.ID != visitID {
				out = append(out, v)
			}
		}
		snap.Visits = out
		return true
	})
}

// AddDelivery appends a delivery record.
func (s *Store) AddDelivery(d model.Delivery) {
	s.update(func(snap *model.Snapshot) bool {
		snap.Deliveries = append(snap.Deliveries, d)
		return true
	})
}

// UpdateDelivery replaces the delivery with the same ID.
func (s *Store) UpdateDelivery(d model.Delivery) bool {
	return s.update(func(snap *model.Snapshot) bool {
		for i := range snap.Deliveries {
			if snap.Deliveries[i].ID == d.ID {
				snap.Deliveries[i] = d
				return true
			}
		}
		return false
	})
}

// DeleteDelivery removes a delivery record.
func (s *Store) DeleteDelivery(deliveryID string) {
	s.update(func(snap *model.Snapshot) bool {
		out := snap.Deliveries[:0]
		for _, d := range snap.Deliveries {
			if d.ID != deliveryID {
				out = append(out, d)
			}
		}
		snap.Deliveries = out
		return true
	})
}
