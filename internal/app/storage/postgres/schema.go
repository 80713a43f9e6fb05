package postgres

import "context"

// Schema is the DDL for every table the store touches. Amounts are stored
// as BIGINT in 1e-8 units.
const Schema = `
CREATE TABLE IF NOT EXISTS dao_organizations (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    icon_url        TEXT NOT NULL DEFAULT '',
    token_image     TEXT NOT NULL DEFAULT '',
    tags            JSONB,
    purpose         TEXT NOT NULL DEFAULT '',
    owner_id        TEXT NOT NULL,
    gov_token_id    TEXT NOT NULL,
    owner_badge_id  TEXT NOT NULL,
    token_price     BIGINT NOT NULL,
    buy_back_price  BIGINT NOT NULL,
    token_supply    BIGINT NOT NULL,
    policy_mode     TEXT NOT NULL,
    policy_threshold BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS dao_contributions (
    org_id      TEXT NOT NULL REFERENCES dao_organizations(id),
    contributor TEXT NOT NULL,
    total       BIGINT NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (org_id, contributor)
);

CREATE TABLE IF NOT EXISTS dao_proposal_seq (
    org_id  TEXT PRIMARY KEY,
    last_id BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS dao_proposals (
    org_id         TEXT NOT NULL,
    id             BIGINT NOT NULL,
    kind           TEXT NOT NULL,
    title          TEXT NOT NULL DEFAULT '',
    summary        TEXT NOT NULL DEFAULT '',
    proposer       TEXT NOT NULL,
    weighting      TEXT NOT NULL,
    target_issuer  TEXT NOT NULL DEFAULT '',
    target_amount  BIGINT NOT NULL DEFAULT 0,
    mint_amount    BIGINT NOT NULL DEFAULT 0,
    minimum_quorum BIGINT NOT NULL,
    start_at       TIMESTAMPTZ NOT NULL,
    end_at         TIMESTAMPTZ NOT NULL,
    votes_for      BIGINT NOT NULL DEFAULT 0,
    votes_against  BIGINT NOT NULL DEFAULT 0,
    voters         JSONB,
    status         TEXT NOT NULL,
    executed_at    TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (org_id, id)
);

CREATE TABLE IF NOT EXISTS dao_annuities (
    id                    TEXT PRIMARY KEY,
    issuer                TEXT NOT NULL,
    contract_type         TEXT NOT NULL DEFAULT '',
    contract_role         TEXT NOT NULL DEFAULT '',
    contract_identifier   TEXT NOT NULL DEFAULT '',
    currency              TEXT NOT NULL DEFAULT '',
    position              TEXT NOT NULL DEFAULT '',
    principal             BIGINT NOT NULL,
    rate_percent          BIGINT NOT NULL,
    issued_at             TIMESTAMPTZ NOT NULL,
    maturity_date         TIMESTAMPTZ NOT NULL,
    term_years            BIGINT NOT NULL,
    unit_price            BIGINT NOT NULL,
    supply                BIGINT NOT NULL,
    collateral_asset_id   TEXT NOT NULL DEFAULT '',
    collateral_amount     BIGINT NOT NULL DEFAULT 0,
    status                TEXT NOT NULL,
    unit_asset_id         TEXT NOT NULL,
    annual_payout_base    BIGINT NOT NULL,
    annual_interest       BIGINT NOT NULL,
    last_payout           TIMESTAMPTZ NOT NULL,
    payouts_made          BIGINT NOT NULL DEFAULT 0,
    total_to_payback      BIGINT NOT NULL,
    total_repaid          BIGINT NOT NULL DEFAULT 0,
    proceeds_withdrawn    BIGINT NOT NULL DEFAULT 0,
    collateral_released   BOOLEAN NOT NULL DEFAULT FALSE,
    collateral_liquidated BOOLEAN NOT NULL DEFAULT FALSE,
    created_at            TIMESTAMPTZ NOT NULL,
    updated_at            TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS dao_annuities_issuer_idx ON dao_annuities (issuer, created_at);

CREATE TABLE IF NOT EXISTS dao_assets (
    id         TEXT PRIMARY KEY,
    kind       TEXT NOT NULL,
    symbol     TEXT NOT NULL,
    name       TEXT NOT NULL,
    org_id     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS dao_holdings (
    holder_id  TEXT NOT NULL,
    asset_id   TEXT NOT NULL REFERENCES dao_assets(id),
    amount     BIGINT NOT NULL CHECK (amount >= 0),
    updated_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (holder_id, asset_id)
);

CREATE TABLE IF NOT EXISTS dao_journal (
    id         TEXT PRIMARY KEY,
    reason     TEXT NOT NULL,
    reference  TEXT NOT NULL DEFAULT '',
    movements  JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS dao_journal_reference_idx ON dao_journal (reference);
`

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}
