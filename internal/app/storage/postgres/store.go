// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/annuity"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	moneydom "github.com/harshpreetweb3/insurance-dao/internal/app/domain/money"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/org"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/proposal"
	"github.com/harshpreetweb3/insurance-dao/internal/app/faults"
	"github.com/harshpreetweb3/insurance-dao/internal/app/storage"
)

func amt(v int64) moneydom.Amount { return moneydom.Amount(v) }

// Store implements the storage interfaces using the provided handle.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- OrganizationStore ------------------------------------------------------

func (s *Store) CreateOrganization(ctx context.Context, o *org.Organization) error {
	tagsJSON, err := json.Marshal(o.Tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dao_organizations (
			id, name, description, icon_url, token_image, tags, purpose,
			owner_id, gov_token_id, owner_badge_id,
			token_price, buy_back_price, token_supply,
			policy_mode, policy_threshold, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, o.ID, o.Name, o.Description, o.IconURL, o.TokenImage, tagsJSON, o.Purpose,
		o.Owner, o.GovernanceTokenID, o.OwnerBadgeID,
		int64(o.TokenPrice), int64(o.BuyBackPrice), int64(o.TokenSupply),
		string(o.CreationPolicy.Mode), int64(o.CreationPolicy.Threshold), o.CreatedAt, o.UpdatedAt)
	return err
}

func scanOrganization(row interface{ Scan(...interface{}) error }) (*org.Organization, error) {
	var (
		o         org.Organization
		tagsRaw   []byte
		price     int64
		buyBack   int64
		supply    int64
		threshold int64
		mode      string
	)
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.IconURL, &o.TokenImage, &tagsRaw, &o.Purpose,
		&o.Owner, &o.GovernanceTokenID, &o.OwnerBadgeID,
		&price, &buyBack, &supply, &mode, &threshold, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(tagsRaw) > 0 {
		_ = json.Unmarshal(tagsRaw, &o.Tags)
	}
	o.TokenPrice = amt(price)
	o.BuyBackPrice = amt(buyBack)
	o.TokenSupply = amt(supply)
	o.CreationPolicy = org.CreationPolicy{Mode: org.PolicyMode(mode), Threshold: amt(threshold)}
	return &o, nil
}

const orgColumns = `id, name, description, icon_url, token_image, tags, purpose,
	owner_id, gov_token_id, owner_badge_id,
	token_price, buy_back_price, token_supply,
	policy_mode, policy_threshold, created_at, updated_at`

func (s *Store) GetOrganization(ctx context.Context, id string) (*org.Organization, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+orgColumns+` FROM dao_organizations WHERE id = $1
	`, id)
	o, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("organization %s: %w", id, faults.ErrNotFound)
	}
	return o, err
}

func (s *Store) ListOrganizations(ctx context.Context) ([]*org.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orgColumns+` FROM dao_organizations ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*org.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (s *Store) UpdateOrganization(ctx context.Context, o *org.Organization) error {
	tagsJSON, err := json.Marshal(o.Tags)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE dao_organizations
		SET name=$2, description=$3, icon_url=$4, token_image=$5, tags=$6, purpose=$7,
			token_price=$8, buy_back_price=$9, token_supply=$10, updated_at=$11
		WHERE id = $1
	`, o.ID, o.Name, o.Description, o.IconURL, o.TokenImage, tagsJSON, o.Purpose,
		int64(o.TokenPrice), int64(o.BuyBackPrice), int64(o.TokenSupply), o.UpdatedAt)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("organization %s: %w", o.ID, faults.ErrNotFound)
	}
	return nil
}

func (s *Store) UpsertContribution(ctx context.Context, c *org.Contribution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dao_contributions (org_id, contributor, total, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (org_id, contributor)
		DO UPDATE SET total = EXCLUDED.total, updated_at = EXCLUDED.updated_at
	`, c.OrgID, c.Contributor, int64(c.Total), c.UpdatedAt)
	return err
}

func (s *Store) GetContribution(ctx context.Context, orgID, contributor string) (*org.Contribution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT org_id, contributor, total, updated_at
		FROM dao_contributions WHERE org_id = $1 AND contributor = $2
	`, orgID, contributor)

	var (
		c     org.Contribution
		total int64
	)
	if err := row.Scan(&c.OrgID, &c.Contributor, &total, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contribution %s/%s: %w", orgID, contributor, faults.ErrNotFound)
		}
		return nil, err
	}
	c.Total = amt(total)
	return &c, nil
}

func (s *Store) ListContributions(ctx context.Context, orgID string) ([]*org.Contribution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT org_id, contributor, total, updated_at
		FROM dao_contributions WHERE org_id = $1 ORDER BY contributor
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*org.Contribution
	for rows.Next() {
		var (
			c     org.Contribution
			total int64
		)
		if err := rows.Scan(&c.OrgID, &c.Contributor, &total, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Total = amt(total)
		result = append(result, &c)
	}
	return result, rows.Err()
}

// --- ProposalStore ----------------------------------------------------------

func (s *Store) NextProposalID(ctx context.Context, orgID string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO dao_proposal_seq (org_id, last_id)
		VALUES ($1, 1)
		ON CONFLICT (org_id) DO UPDATE SET last_id = dao_proposal_seq.last_id + 1
		RETURNING last_id
	`, orgID)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

const proposalColumns = `org_id, id, kind, title, summary, proposer, weighting,
	target_issuer, target_amount, mint_amount, minimum_quorum,
	start_at, end_at, votes_for, votes_against, voters, status,
	executed_at, created_at, updated_at`

func (s *Store) CreateProposal(ctx context.Context, p *proposal.Proposal) error {
	votersJSON, err := json.Marshal(p.Voters)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dao_proposals (`+proposalColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`, p.OrgID, p.ID, string(p.Kind), p.Title, p.Summary, p.Proposer, string(p.Weighting),
		p.TargetIssuer, int64(p.TargetAmount), int64(p.MintAmount), p.MinimumQuorum,
		p.StartAt, p.EndAt, int64(p.VotesFor), int64(p.VotesAgainst), votersJSON, string(p.Status),
		p.ExecutedAt, p.CreatedAt, p.UpdatedAt)
	return err
}

func scanProposal(row interface{ Scan(...interface{}) error }) (*proposal.Proposal, error) {
	var (
		p            proposal.Proposal
		kind         string
		weighting    string
		status       string
		targetAmount int64
		mintAmount   int64
		votesFor     int64
		votesAgainst int64
		votersRaw    []byte
		executedAt   sql.NullTime
	)
	err := row.Scan(&p.OrgID, &p.ID, &kind, &p.Title, &p.Summary, &p.Proposer, &weighting,
		&p.TargetIssuer, &targetAmount, &mintAmount, &p.MinimumQuorum,
		&p.StartAt, &p.EndAt, &votesFor, &votesAgainst, &votersRaw, &status,
		&executedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Kind = proposal.Kind(kind)
	p.Weighting = proposal.Weighting(weighting)
	p.Status = proposal.Status(status)
	p.TargetAmount = amt(targetAmount)
	p.MintAmount = amt(mintAmount)
	p.VotesFor = amt(votesFor)
	p.VotesAgainst = amt(votesAgainst)
	if len(votersRaw) > 0 {
		_ = json.Unmarshal(votersRaw, &p.Voters)
	}
	if executedAt.Valid {
		t := executedAt.Time
		p.ExecutedAt = &t
	}
	return &p, nil
}

func (s *Store) GetProposal(ctx context.Context, orgID string, id int64) (*proposal.Proposal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+proposalColumns+` FROM dao_proposals WHERE org_id = $1 AND id = $2
	`, orgID, id)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("proposal %s/%d: %w", orgID, id, faults.ErrNoSuchProposal)
	}
	return p, err
}

func (s *Store) listProposals(ctx context.Context, query string, args ...interface{}) ([]*proposal.Proposal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*proposal.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) ListProposals(ctx context.Context, orgID string) ([]*proposal.Proposal, error) {
	return s.listProposals(ctx, `
		SELECT `+proposalColumns+` FROM dao_proposals WHERE org_id = $1 ORDER BY id
	`, orgID)
}

func (s *Store) ListProposalsByStatus(ctx context.Context, orgID string, status proposal.Status) ([]*proposal.Proposal, error) {
	return s.listProposals(ctx, `
		SELECT `+proposalColumns+` FROM dao_proposals
		WHERE org_id = $1 AND status = $2 ORDER BY id
	`, orgID, string(status))
}

func (s *Store) UpdateProposal(ctx context.Context, p *proposal.Proposal) error {
	votersJSON, err := json.Marshal(p.Voters)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE dao_proposals
		SET votes_for=$3, votes_against=$4, voters=$5, status=$6, executed_at=$7, updated_at=$8
		WHERE org_id = $1 AND id = $2
	`, p.OrgID, p.ID, int64(p.VotesFor), int64(p.VotesAgainst), votersJSON, string(p.Status),
		p.ExecutedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("proposal %s/%d: %w", p.OrgID, p.ID, faults.ErrNoSuchProposal)
	}
	return nil
}

// --- AnnuityStore -----------------------------------------------------------

const annuityColumns = `id, issuer, contract_type, contract_role, contract_identifier,
	currency, position, principal, rate_percent, issued_at, maturity_date, term_years,
	unit_price, supply, collateral_asset_id, collateral_amount,
	status, unit_asset_id, annual_payout_base, annual_interest,
	last_payout, payouts_made, total_to_payback, total_repaid, proceeds_withdrawn,
	collateral_released, collateral_liquidated, created_at, updated_at`

func (s *Store) CreateAnnuity(ctx context.Context, a *annuity.Annuity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dao_annuities (`+annuityColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			$21,$22,$23,$24,$25,$26,$27,$28,$29)
	`, a.ID, a.Issuer, a.Terms.ContractType, a.Terms.ContractRole, a.Terms.ContractIdentifier,
		a.Terms.Currency, a.Terms.Position, int64(a.Terms.Principal), a.Terms.RatePercent,
		a.Terms.IssuedAt, a.Terms.MaturityDate, a.Terms.TermYears,
		int64(a.Terms.UnitPrice), int64(a.Terms.Supply), a.Terms.CollateralAssetID, int64(a.Terms.CollateralAmount),
		string(a.Status), a.UnitAssetID, int64(a.AnnualPayoutBase), int64(a.AnnualInterest),
		a.LastPayout, a.PayoutsMade, int64(a.TotalAmountToPayback), int64(a.TotalRepaid), int64(a.ProceedsWithdrawn),
		a.CollateralReleased, a.CollateralLiquidated, a.CreatedAt, a.UpdatedAt)
	return err
}

func scanAnnuity(row interface{ Scan(...interface{}) error }) (*annuity.Annuity, error) {
	var (
		a          annuity.Annuity
		status     string
		principal  int64
		unitPrice  int64
		supply     int64
		collateral int64
		base       int64
		interest   int64
		toPayback  int64
		repaid     int64
		withdrawn  int64
	)
	err := row.Scan(&a.ID, &a.Issuer, &a.Terms.ContractType, &a.Terms.ContractRole, &a.Terms.ContractIdentifier,
		&a.Terms.Currency, &a.Terms.Position, &principal, &a.Terms.RatePercent,
		&a.Terms.IssuedAt, &a.Terms.MaturityDate, &a.Terms.TermYears,
		&unitPrice, &supply, &a.Terms.CollateralAssetID, &collateral,
		&status, &a.UnitAssetID, &base, &interest,
		&a.LastPayout, &a.PayoutsMade, &toPayback, &repaid, &withdrawn,
		&a.CollateralReleased, &a.CollateralLiquidated, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = annuity.Status(status)
	a.Terms.Principal = amt(principal)
	a.Terms.UnitPrice = amt(unitPrice)
	a.Terms.Supply = amt(supply)
	a.Terms.CollateralAmount = amt(collateral)
	a.AnnualPayoutBase = amt(base)
	a.AnnualInterest = amt(interest)
	a.TotalAmountToPayback = amt(toPayback)
	a.TotalRepaid = amt(repaid)
	a.ProceedsWithdrawn = amt(withdrawn)
	return &a, nil
}

func (s *Store) GetAnnuity(ctx context.Context, id string) (*annuity.Annuity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+annuityColumns+` FROM dao_annuities WHERE id = $1
	`, id)
	a, err := scanAnnuity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("annuity %s: %w", id, faults.ErrNotFound)
	}
	return a, err
}

func (s *Store) listAnnuities(ctx context.Context, query string, args ...interface{}) ([]*annuity.Annuity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*annuity.Annuity
	for rows.Next() {
		a, err := scanAnnuity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) ListAnnuities(ctx context.Context) ([]*annuity.Annuity, error) {
	return s.listAnnuities(ctx, `
		SELECT `+annuityColumns+` FROM dao_annuities ORDER BY created_at
	`)
}

func (s *Store) ListAnnuitiesByIssuer(ctx context.Context, issuer string) ([]*annuity.Annuity, error) {
	return s.listAnnuities(ctx, `
		SELECT `+annuityColumns+` FROM dao_annuities WHERE issuer = $1 ORDER BY created_at
	`, issuer)
}

func (s *Store) ListAnnuitiesByStatus(ctx context.Context, status annuity.Status) ([]*annuity.Annuity, error) {
	return s.listAnnuities(ctx, `
		SELECT `+annuityColumns+` FROM dao_annuities WHERE status = $1 ORDER BY created_at
	`, string(status))
}

func (s *Store) UpdateAnnuity(ctx context.Context, a *annuity.Annuity) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE dao_annuities
		SET status=$2, last_payout=$3, payouts_made=$4, total_repaid=$5, proceeds_withdrawn=$6,
			collateral_released=$7, collateral_liquidated=$8, updated_at=$9
		WHERE id = $1
	`, a.ID, string(a.Status), a.LastPayout, a.PayoutsMade, int64(a.TotalRepaid), int64(a.ProceedsWithdrawn),
		a.CollateralReleased, a.CollateralLiquidated, a.UpdatedAt)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("annuity %s: %w", a.ID, faults.ErrNotFound)
	}
	return nil
}

// --- LedgerStore ------------------------------------------------------------

func (s *Store) CreateAsset(ctx context.Context, a *asset.Asset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dao_assets (id, kind, symbol, name, org_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, string(a.Kind), a.Symbol, a.Name, a.OrgID, a.CreatedAt)
	return err
}

func (s *Store) GetAsset(ctx context.Context, id string) (*asset.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, symbol, name, org_id, created_at FROM dao_assets WHERE id = $1
	`, id)
	var (
		a    asset.Asset
		kind string
	)
	if err := row.Scan(&a.ID, &kind, &a.Symbol, &a.Name, &a.OrgID, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", id, faults.ErrNotFound)
		}
		return nil, err
	}
	a.Kind = asset.Kind(kind)
	return &a, nil
}

func (s *Store) ListAssets(ctx context.Context) ([]*asset.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, symbol, name, org_id, created_at FROM dao_assets ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*asset.Asset
	for rows.Next() {
		var (
			a    asset.Asset
			kind string
		)
		if err := rows.Scan(&a.ID, &kind, &a.Symbol, &a.Name, &a.OrgID, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Kind = asset.Kind(kind)
		result = append(result, &a)
	}
	return result, rows.Err()
}

func (s *Store) GetHolding(ctx context.Context, holderID, assetID string) (*asset.Holding, error) {
	if _, err := s.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT holder_id, asset_id, amount, updated_at
		FROM dao_holdings WHERE holder_id = $1 AND asset_id = $2
	`, holderID, assetID)

	var (
		h      asset.Holding
		amount int64
	)
	if err := row.Scan(&h.HolderID, &h.AssetID, &amount, &h.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &asset.Holding{HolderID: holderID, AssetID: assetID}, nil
		}
		return nil, err
	}
	h.Amount = amt(amount)
	return &h, nil
}

func (s *Store) ListHoldings(ctx context.Context, holderID string) ([]*asset.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT holder_id, asset_id, amount, updated_at
		FROM dao_holdings WHERE holder_id = $1 AND amount <> 0 ORDER BY asset_id
	`, holderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*asset.Holding
	for rows.Next() {
		var (
			h      asset.Holding
			amount int64
		)
		if err := rows.Scan(&h.HolderID, &h.AssetID, &amount, &h.UpdatedAt); err != nil {
			return nil, err
		}
		h.Amount = amt(amount)
		result = append(result, &h)
	}
	return result, rows.Err()
}

// ApplyEntry runs every movement in one transaction. The CHECK constraint
// on dao_holdings rejects overdrafts and rolls the whole entry back.
func (s *Store) ApplyEntry(ctx context.Context, e *asset.JournalEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range e.Movements {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO dao_holdings (holder_id, asset_id, amount, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (holder_id, asset_id)
			DO UPDATE SET amount = dao_holdings.amount + EXCLUDED.amount, updated_at = EXCLUDED.updated_at
			RETURNING amount
		`, m.HolderID, m.AssetID, int64(m.Amount), e.CreatedAt)
		var balance int64
		if err := row.Scan(&balance); err != nil {
			return fmt.Errorf("holder %s asset %s: %w", m.HolderID, m.AssetID, faults.ErrInsufficientFunds)
		}
	}

	movementsJSON, err := json.Marshal(e.Movements)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO dao_journal (id, reason, reference, movements, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.Reason, e.Reference, movementsJSON, e.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListJournal(ctx context.Context, reference string) ([]*asset.JournalEntry, error) {
	query := `SELECT id, reason, reference, movements, created_at FROM dao_journal ORDER BY created_at`
	args := []interface{}{}
	if reference != "" {
		query = `SELECT id, reason, reference, movements, created_at
			FROM dao_journal WHERE reference = $1 ORDER BY created_at`
		args = append(args, reference)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*asset.JournalEntry
	for rows.Next() {
		var (
			e            asset.JournalEntry
			movementsRaw []byte
		)
		if err := rows.Scan(&e.ID, &e.Reason, &e.Reference, &movementsRaw, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(movementsRaw) > 0 {
			_ = json.Unmarshal(movementsRaw, &e.Movements)
		}
		result = append(result, &e)
	}
	return result, rows.Err()
}
