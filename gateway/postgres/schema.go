package postgres

// schemaSQL provisions the four case-management tables. family_id
// references cascade so removing a family server-side cannot orphan its
// dependents; the sync engine still deletes dependents explicitly to
// keep both sides in step.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS families (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    name            TEXT NOT NULL,
    birth_date      TEXT,
    phone           TEXT,
    address         TEXT,
    neighborhood    TEXT,
    city            TEXT,
    cpf             TEXT,
    rg              TEXT,
    income          TEXT,
    health_notes    TEXT,
    occupation      TEXT,
    household_size  INTEGER,
    status          TEXT,
    registered_at   TEXT,
    notes           TEXT,
    created_at      TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at      TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS members (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    family_id       TEXT NOT NULL REFERENCES families (id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    relationship    TEXT,
    age             INTEGER,
    birth_date      TEXT,
    occupation      TEXT,
    income          TEXT,
    health_notes    TEXT,
    created_at      TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at      TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS visits (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    family_id       TEXT NOT NULL REFERENCES families (id) ON DELETE CASCADE,
    visit_date      TEXT,
    volunteers      TEXT[],
    narrative       TEXT,
    reason          TEXT,
    needs           TEXT[],
    created_at      TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at      TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS deliveries (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL,
    family_id        TEXT NOT NULL REFERENCES families (id) ON DELETE CASCADE,
    delivery_date    TEXT,
    aid_type         TEXT,
    responsible      TEXT,
    status           TEXT,
    collected_by     TEXT,
    collected_detail TEXT,
    notes            TEXT,
    created_at       TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at       TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_families_user_id ON families (user_id);
CREATE INDEX IF NOT EXISTS idx_members_user_id ON members (user_id);
CREATE INDEX IF NOT EXISTS idx_members_family_id ON members (family_id);
CREATE INDEX IF NOT EXISTS idx_visits_user_id ON visits (user_id);
CREATE INDEX IF NOT EXISTS idx_visits_family_id ON visits (family_id);
CREATE INDEX IF NOT EXISTS idx_deliveries_user_id ON deliveries (user_id);
CREATE INDEX IF NOT EXISTS idx_deliveries_family_id ON deliveries (family_id);
`
