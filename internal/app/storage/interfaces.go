// Package storage defines the persistence interfaces consumed by the
// services. Implementations live in the memory and postgres subpackages.
package storage

import (
	"context"

	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/annuity"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/org"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/proposal"
)

// OrganizationStore persists organizations and their contribution totals.
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, o *org.Organization) error
	GetOrganization(ctx context.Context, id string) (*org.Organization, error)
	ListOrganizations(ctx context.Context) ([]*org.Organization, error)
	UpdateOrganization(ctx context.Context, o *org.Organization) error

	UpsertContribution(ctx context.Context, c *org.Contribution) error
	GetContribution(ctx context.Context, orgID, contributor string) (*org.Contribution, error)
	ListContributions(ctx context.Context, orgID string) ([]*org.Contribution, error)
}

// ProposalStore persists proposals. IDs are sequential per organization.
type ProposalStore interface {
	NextProposalID(ctx context.Context, orgID string) (int64, error)
	CreateProposal(ctx context.Context, p *proposal.Proposal) error
	GetProposal(ctx context.Context, orgID string, id int64) (*proposal.Proposal, error)
	ListProposals(ctx context.Context, orgID string) ([]*proposal.Proposal, error)
	ListProposalsByStatus(ctx context.Context, orgID string, status proposal.Status) ([]*proposal.Proposal, error)
	UpdateProposal(ctx context.Context, p *proposal.Proposal) error
}

// AnnuityStore persists annuity instruments.
type AnnuityStore interface {
	CreateAnnuity(ctx context.Context, a *annuity.Annuity) error
	GetAnnuity(ctx context.Context, id string) (*annuity.Annuity, error)
	ListAnnuities(ctx context.Context) ([]*annuity.Annuity, error)
	ListAnnuitiesByIssuer(ctx context.Context, issuer string) ([]*annuity.Annuity, error)
	ListAnnuitiesByStatus(ctx context.Context, status annuity.Status) ([]*annuity.Annuity, error)
	UpdateAnnuity(ctx context.Context, a *annuity.Annuity) error
}

// LedgerStore persists asset definitions, holdings and the journal.
// ApplyEntry must be atomic: either every movement lands or none do.
type LedgerStore interface {
	CreateAsset(ctx context.Context, a *asset.Asset) error
	GetAsset(ctx context.Context, id string) (*asset.Asset, error)
	ListAssets(ctx context.Context) ([]*asset.Asset, error)

	GetHolding(ctx context.Context, holderID, assetID string) (*asset.Holding, error)
	ListHoldings(ctx context.Context, holderID string) ([]*asset.Holding, error)
	ApplyEntry(ctx context.Context, e *asset.JournalEntry) error
	ListJournal(ctx context.Context, reference string) ([]*asset.JournalEntry, error)
}

// Store aggregates every persistence interface the application needs.
type Store interface {
	OrganizationStore
	ProposalStore
	AnnuityStore
	LedgerStore
}
