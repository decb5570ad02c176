package model

// Row is the wire form of one record: column name to value. It is what
// the remote store gateway sends and returns.
type Row = map[string]any

// Server-managed metadata columns. They are never sent on upsert and are
// ignored when decoding fetched rows; the remote store owns them.
const (
	ColumnOwner     = "user_id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// prune drops empty-string values from a row. The remote store treats an
// absent column as "unset" and rejects empty strings on typed optional
// columns. Identifier columns are always kept.
func prune(r Row) Row {
	for k, v := range r {
		if k == "id" || k == "family_id" || k == ColumnOwner {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			delete(r, k)
		}
	}
	return r
}

// Row encodes the family for upsert, owned by the given user.
func (f Family) Row(owner string) Row {
	return prune(Row{
		"id":             f.ID,
		ColumnOwner:      owner,
		"name":           f.Name,
		"birth_date":     f.BirthDate,
		"phone":          f.Phone,
		"address":        f.Address,
		"neighborhood":   f.Neighborhood,
		"city":           f.City,
		"cpf":            f.CPF,
		"rg":             f.RG,
		"income":         f.Income,
		"health_notes":   f.HealthNotes,
		"occupation":     f.Occupation,
		"household_size": f.HouseholdSize,
		"status":         string(f.Status),
		"registered_at":  f.RegisteredAt,
		"notes":          f.Notes,
	})
}

// Row encodes the member for upsert, owned by the given user.
func (m Member) Row(owner string) Row {
	return prune(Row{
		"id":           m.ID,
		ColumnOwner:    owner,
		"family_id":    m.FamilyID,
		"name":         m.Name,
		"relationship": m.Relationship,
		"age":          m.Age,
		"birth_date":   m.BirthDate,
		"occupation":   m.Occupation,
		"income":       m.Income,
		"health_notes": m.HealthNotes,
	})
}

// Row encodes the visit for upsert, owned by the given user.
func (v Visit) Row(owner string) Row {
	return prune(Row{
		"id":         v.ID,
		ColumnOwner:  owner,
		"family_id":  v.FamilyID,
		"visit_date": v.Date,
		"volunteers": append([]string(nil), v.Volunteers...),
		"narrative":  v.Narrative,
		"reason":     v.Reason,
		"needs":      append([]string(nil), v.Needs...),
	})
}

// Row encodes the delivery for upsert, owned by the given user.
func (d Delivery) Row(owner string) Row {
	return prune(Row{
		"id":               d.ID,
		ColumnOwner:        owner,
		"family_id":        d.FamilyID,
		"delivery_date":    d.Date,
		"aid_type":         d.AidType,
		"responsible":      d.Responsible,
		"status":           string(d.Status),
		"collected_by":     string(d.CollectedBy),
		"collected_detail": d.CollectedDetail,
		"notes":            d.Notes,
	})
}

// Rows encodes the named collection for upsert under the given owner.
func (s *Snapshot) Rows(table, owner string) []Row {
	var rows []Row
	switch table {
	case TableFamilies:
		for _, f := range s.Families {
			rows = append(rows, f.Row(owner))
		}
	case TableMembers:
		for _, m := range s.Members {
			rows = append(rows, m.Row(owner))
		}
	case TableVisits:
		for _, v := range s.Visits {
			rows = append(rows, v.Row(owner))
		}
	case TableDeliveries:
		for _, d := range s.Deliveries {
			rows = append(rows, d.Row(owner))
		}
	}
	return rows
}

// Decoding is deliberately tolerant: fetched rows may be missing optional
// columns (NULL or never set) and carry server metadata we do not keep.

func str(r Row, key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

func integer(r Row, key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func strs(r Row, key string) []string {
	switch v := r[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// FamilyFromRow decodes a fetched families row.
func FamilyFromRow(r Row) Family {
	return Family{
		ID:            str(r, "id"),
		Name:          str(r, "name"),
		BirthDate:     str(r, "birth_date"),
		Phone:         str(r, "phone"),
		Address:       str(r, "address"),
		Neighborhood:  str(r, "neighborhood"),
		City:          str(r, "city"),
		CPF:           str(r, "cpf"),
		RG:            str(r, "rg"),
		Income:        str(r, "income"),
		HealthNotes:   str(r, "health_notes"),
		Occupation:    str(r, "occupation"),
		HouseholdSize: integer(r, "household_size"),
		Status:        FamilyStatus(str(r, "status")),
		RegisteredAt:  str(r, "registered_at"),
		Notes:         str(r, "notes"),
	}
}

// MemberFromRow decodes a fetched members row.
func MemberFromRow(r Row) Member {
	return Member{
		ID:           str(r, "id"),
		FamilyID:     str(r, "family_id"),
		Name:         str(r, "name"),
		Relationship: str(r, "relationship"),
		Age:          integer(r, "age"),
		BirthDate:    str(r, "birth_date"),
		Occupation:   str(r, "occupation"),
		Income:       str(r, "income"),
		HealthNotes:  str(r, "health_notes"),
	}
}

// VisitFromRow decodes a fetched visits row. Array columns decode to
// empty slices rather than nil so callers can range without nil checks.
func VisitFromRow(r Row) Visit {
	v := Visit{
		ID:         str(r, "id"),
		FamilyID:   str(r, "family_id"),
		Date:       str(r, "visit_date"),
		Volunteers: strs(r, "volunteers"),
		Narrative:  str(r, "narrative"),
		Reason:     str(r, "reason"),
		Needs:      strs(r, "needs"),
	}
	if v.Volunteers == nil {
		v.Volunteers = []string{}
	}
	if v.Needs == nil {
		v.Needs = []string{}
	}
	return v
}

// DeliveryFromRow decodes a fetched deliveries row.
func DeliveryFromRow(r Row) Delivery {
	return Delivery{
		ID:              str(r, "id"),
		FamilyID:        str(r, "family_id"),
		Date:            str(r, "delivery_date"),
		AidType:         str(r, "aid_type"),
		Responsible:     str(r, "responsible"),
		Status:          DeliveryStatus(str(r, "status")),
		CollectedBy:     CollectedBy(str(r, "collected_by")),
		CollectedDetail: str(r, "collected_detail"),
		Notes:           str(r, "notes"),
	}
}

// SnapshotFromRows assembles a snapshot from fetched per-table rows.
func SnapshotFromRows(families, members, visits, deliveries []Row) *Snapshot {
	s := &Snapshot{}
	for _, r := range families {
		s.Families = append(s.Families, FamilyFromRow(r))
	}
	for _, r := range members {
		s.Members = append(s.Members, MemberFromRow(r))
	}
	for _, r := range visits {
		s.Visits = append(s.Visits, VisitFromRow(r))
	}
	for _, r := range deliveries {
		s.Deliveries = append(s.Deliveries, DeliveryFromRow(r))
	}
	return s
}
