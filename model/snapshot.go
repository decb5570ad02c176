package model

// Remote table names, one per collection.
const (
	TableFamilies   = "families"
	TableMembers    = "members"
	TableVisits     = "visits"
	TableDeliveries = "deliveries"
)

// TablesInDependencyOrder returns the table names with parents before
// children. Members, visits, and deliveries all reference families by
// foreign key, so families must be written first.
func TablesInDependencyOrder() []string {
	return []string{TableFamilies, TableMembers, TableVisits, TableDeliveries}
}

// Snapshot is the complete in-memory value of all four collections at a
// point in time. Snapshots are treated as values: anything handed a
// Snapshot owns it and may mutate it freely.
type Snapshot struct {
	Families   []Family   `json:"families"`
	Members    []Member   `json:"members"`
	Visits     []Visit    `json:"visits"`
	Deliveries []Delivery `json:"deliveries"`
}

// Clone returns a fully independent deep copy. Mutating the clone (or
// the original) never affects the other, including the volunteer and
// needs slices inside visits.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	out := &Snapshot{
		Families:   append([]Family(nil), s.Families...),
		Members:    append([]Member(nil), s.Members...),
		Visits:     append([]Visit(nil), s.Visits...),
		Deliveries: append([]Delivery(nil), s.Deliveries...),
	}
	for i := range out.Visits {
		out.Visits[i].Volunteers = append([]string(nil), out.Visits[i].Volunteers...)
		out.Visits[i].Needs = append([]string(nil), out.Visits[i].Needs...)
	}
	return out
}

// DeleteFamily removes the family and cascades to every member, visit,
// and delivery referencing it. The whole removal is one mutation so a
// snapshot never holds orphaned child records.
func (s *Snapshot) DeleteFamily(familyID string) {
	families := s.Families[:0]
	for _, f := range s.Families {
		if f.ID != familyID {
			families = append(families, f)
		}
	}
	s.Families = families

	members := s.Members[:0]
	for _, m := range s.Members {
		if m.FamilyID != familyID {
			members = append(members, m)
		}
	}
	s.Members = members

	visits := s.Visits[:0]
	for _, v := range s.Visits {
		if v.FamilyID != familyID {
			visits = append(visits, v)
		}
	}
	s.Visits = visits

	deliveries := s.Deliveries[:0]
	for _, d := range s.Deliveries {
		if d.FamilyID != familyID {
			deliveries = append(deliveries, d)
		}
	}
	s.Deliveries = deliveries
}

// IDs returns the identifiers present in the named collection.
func (s *Snapshot) IDs(table string) []string {
	var ids []string
	switch table {
	case TableFamilies:
		for _, f := range s.Families {
			ids = append(ids, f.ID)
		}
	case TableMembers:
		for _, m := range s.Members {
			ids = append(ids, m.ID)
		}
	case TableVisits:
		for _, v := range s.Visits {
			ids = append(ids, v.ID)
		}
	case TableDeliveries:
		for _, d := range s.Deliveries {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// Len returns the number of records in the named collection.
func (s *Snapshot) Len(table string) int {
	switch table {
	case TableFamilies:
		return len(s.Families)
	case TableMembers:
		return len(s.Members)
	case TableVisits:
		return len(s.Visits)
	case TableDeliveries:
		return len(s.Deliveries)
	}
	return 0
}
