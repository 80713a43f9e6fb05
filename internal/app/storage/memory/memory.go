// Package memory provides an in-memory Store for tests and single-node runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/annuity"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/asset"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/org"
	"github.com/harshpreetweb3/insurance-dao/internal/app/domain/proposal"
	"github.com/harshpreetweb3/insurance-dao/internal/app/faults"
	"github.com/harshpreetweb3/insurance-dao/internal/app/storage"
)

// Store keeps everything in maps guarded by one RWMutex. Reads return
// copies so callers cannot mutate shared state.
type Store struct {
	mu sync.RWMutex

	orgs          map[string]*org.Organization
	contributions map[string]*org.Contribution // key: orgID + "/" + contributor

	proposals   map[string]*proposal.Proposal // key: orgID + "/" + id
	proposalSeq map[string]int64

	annuities map[string]*annuity.Annuity

	assets   map[string]*asset.Asset
	holdings map[string]*asset.Holding // key: holderID + "/" + assetID
	journal  []*asset.JournalEntry
}

var _ storage.Store = (*Store)(nil)

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		orgs:          make(map[string]*org.Organization),
		contributions: make(map[string]*org.Contribution),
		proposals:     make(map[string]*proposal.Proposal),
		proposalSeq:   make(map[string]int64),
		annuities:     make(map[string]*annuity.Annuity),
		assets:        make(map[string]*asset.Asset),
		holdings:      make(map[string]*asset.Holding),
	}
}

func contributionKey(orgID, contributor string) string { return orgID + "/" + contributor }

func proposalKey(orgID string, id int64) string { return fmt.Sprintf("%s/%d", orgID, id) }

func holdingKey(holderID, assetID string) string { return holderID + "/" + assetID }

func cloneOrg(o *org.Organization) *org.Organization {
	c := *o
	c.Tags = append([]string(nil), o.Tags...)
	return &c
}

func cloneProposal(p *proposal.Proposal) *proposal.Proposal {
	c := *p
	c.Voters = append([]string(nil), p.Voters...)
	if p.ExecutedAt != nil {
		t := *p.ExecutedAt
		c.ExecutedAt = &t
	}
	return &c
}

func cloneAnnuity(a *annuity.Annuity) *annuity.Annuity {
	c := *a
	return &c
}

func cloneEntry(e *asset.JournalEntry) *asset.JournalEntry {
	c := *e
	c.Movements = append([]asset.Movement(nil), e.Movements...)
	return &c
}

// CreateOrganization stores a new organization. The id must be unused.
func (s *Store) CreateOrganization(_ context.Context, o *org.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[o.ID]; ok {
		return fmt.Errorf("organization %s: %w", o.ID, faults.ErrConflict)
	}
	s.orgs[o.ID] = cloneOrg(o)
	return nil
}

func (s *Store) GetOrganization(_ context.Context, id string) (*org.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, faults.ErrNotFound)
	}
	return cloneOrg(o), nil
}

func (s *Store) ListOrganizations(_ context.Context) ([]*org.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*org.Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		out = append(out, cloneOrg(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateOrganization(_ context.Context, o *org.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[o.ID]; !ok {
		return fmt.Errorf("organization %s: %w", o.ID, faults.ErrNotFound)
	}
	s.orgs[o.ID] = cloneOrg(o)
	return nil
}

func (s *Store) UpsertContribution(_ context.Context, c *org.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.contributions[contributionKey(c.OrgID, c.Contributor)] = &cp
	return nil
}

func (s *Store) GetContribution(_ context.Context, orgID, contributor string) (*org.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contributions[contributionKey(orgID, contributor)]
	if !ok {
		return nil, fmt.Errorf("contribution %s/%s: %w", orgID, contributor, faults.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListContributions(_ context.Context, orgID string) ([]*org.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*org.Contribution
	for _, c := range s.contributions {
		if c.OrgID == orgID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Contributor < out[j].Contributor })
	return out, nil
}

// NextProposalID returns the next value of the per-organization sequence.
func (s *Store) NextProposalID(_ context.Context, orgID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposalSeq[orgID]++
	return s.proposalSeq[orgID], nil
}

func (s *Store) CreateProposal(_ context.Context, p *proposal.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := proposalKey(p.OrgID, p.ID)
	if _, ok := s.proposals[key]; ok {
		return fmt.Errorf("proposal %s: %w", key, faults.ErrConflict)
	}
	s.proposals[key] = cloneProposal(p)
	return nil
}

func (s *Store) GetProposal(_ context.Context, orgID string, id int64) (*proposal.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[proposalKey(orgID, id)]
	if !ok {
		return nil, fmt.Errorf("proposal %s/%d: %w", orgID, id, faults.ErrNoSuchProposal)
	}
	return cloneProposal(p), nil
}

func (s *Store) ListProposals(_ context.Context, orgID string) ([]*proposal.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*proposal.Proposal
	for _, p := range s.proposals {
		if p.OrgID == orgID {
			out = append(out, cloneProposal(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListProposalsByStatus(_ context.Context, orgID string, status proposal.Status) ([]*proposal.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*proposal.Proposal
	for _, p := range s.proposals {
		if p.OrgID == orgID && p.Status == status {
			out = append(out, cloneProposal(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateProposal(_ context.Context, p *proposal.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := proposalKey(p.OrgID, p.ID)
	if _, ok := s.proposals[key]; !ok {
		return fmt.Errorf("proposal %s: %w", key, faults.ErrNoSuchProposal)
	}
	s.proposals[key] = cloneProposal(p)
	return nil
}

func (s *Store) CreateAnnuity(_ context.Context, a *annuity.Annuity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.annuities[a.ID]; ok {
		return fmt.Errorf("annuity %s: %w", a.ID, faults.ErrConflict)
	}
	s.annuities[a.ID] = cloneAnnuity(a)
	return nil
}

func (s *Store) GetAnnuity(_ context.Context, id string) (*annuity.Annuity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.annuities[id]
	if !ok {
		return nil, fmt.Errorf("annuity %s: %w", id, faults.ErrNotFound)
	}
	return cloneAnnuity(a), nil
}

func (s *Store) ListAnnuities(_ context.Context) ([]*annuity.Annuity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*annuity.Annuity, 0, len(s.annuities))
	for _, a := range s.annuities {
		out = append(out, cloneAnnuity(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListAnnuitiesByIssuer(_ context.Context, issuer string) ([]*annuity.Annuity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*annuity.Annuity
	for _, a := range s.annuities {
		if a.Issuer == issuer {
			out = append(out, cloneAnnuity(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListAnnuitiesByStatus(_ context.Context, status annuity.Status) ([]*annuity.Annuity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*annuity.Annuity
	for _, a := range s.annuities {
		if a.Status == status {
			out = append(out, cloneAnnuity(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateAnnuity(_ context.Context, a *annuity.Annuity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.annuities[a.ID]; !ok {
		return fmt.Errorf("annuity %s: %w", a.ID, faults.ErrNotFound)
	}
	s.annuities[a.ID] = cloneAnnuity(a)
	return nil
}

func (s *Store) CreateAsset(_ context.Context, a *asset.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[a.ID]; ok {
		return fmt.Errorf("asset %s: %w", a.ID, faults.ErrConflict)
	}
	cp := *a
	s.assets[a.ID] = &cp
	return nil
}

func (s *Store) GetAsset(_ context.Context, id string) (*asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", id, faults.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListAssets(_ context.Context) ([]*asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*asset.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetHolding returns the holding, or a zero-amount holding when the holder
// has never touched the asset.
func (s *Store) GetHolding(_ context.Context, holderID, assetID string) (*asset.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.assets[assetID]; !ok {
		return nil, fmt.Errorf("asset %s: %w", assetID, faults.ErrNotFound)
	}
	h, ok := s.holdings[holdingKey(holderID, assetID)]
	if !ok {
		return &asset.Holding{HolderID: holderID, AssetID: assetID}, nil
	}
	cp := *h
	return &cp, nil
}

func (s *Store) ListHoldings(_ context.Context, holderID string) ([]*asset.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*asset.Holding
	for _, h := range s.holdings {
		if h.HolderID == holderID && h.Amount != 0 {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out, nil
}

// ApplyEntry applies every movement or none. A movement that would drive a
// balance negative fails the whole entry with ErrInsufficientFunds.
func (s *Store) ApplyEntry(_ context.Context, e *asset.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*asset.Holding, len(e.Movements))
	for _, m := range e.Movements {
		if _, ok := s.assets[m.AssetID]; !ok {
			return fmt.Errorf("asset %s: %w", m.AssetID, faults.ErrNotFound)
		}
		key := holdingKey(m.HolderID, m.AssetID)
		h, ok := next[key]
		if !ok {
			if cur, exists := s.holdings[key]; exists {
				cp := *cur
				h = &cp
			} else {
				h = &asset.Holding{HolderID: m.HolderID, AssetID: m.AssetID}
			}
			next[key] = h
		}
		h.Amount += m.Amount
		if h.Amount < 0 {
			return fmt.Errorf("holder %s asset %s: %w", m.HolderID, m.AssetID, faults.ErrInsufficientFunds)
		}
	}
	for key, h := range next {
		h.UpdatedAt = e.CreatedAt
		s.holdings[key] = h
	}
	s.journal = append(s.journal, cloneEntry(e))
	return nil
}

func (s *Store) ListJournal(_ context.Context, reference string) ([]*asset.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*asset.JournalEntry
	for _, e := range s.journal {
		if reference == "" || e.Reference == reference {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}
