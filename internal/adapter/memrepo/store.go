package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"server/internal/domain"
)

// Store is an in-memory implementation of every persistence port plus the
// notification dispatcher, exposed through per-entity facets. It mirrors
// the guarded-update semantics of the PostgreSQL adapter (a transition only
// applies while the stored status matches the expected source state) so
// engine behavior under races can be exercised without a database. Used by
// tests and local development.
type Store struct {
	mu sync.Mutex

	campaigns     map[string]*domain.Campaign
	milestones    map[string]*domain.Milestone
	donations     map[string]*domain.Donation
	organizations map[string]*domain.OrganizationAccount
	notifications []domain.Notification
	sent          []domain.Notification

	Campaigns     domain.CampaignRepository
	Milestones    domain.MilestoneRepository
	Donations     domain.DonationRepository
	Organizations domain.OrganizationRepository
	Notifications domain.NotificationRepository
	Dispatcher    domain.Dispatcher
}

func NewStore() *Store {
	s := &Store{
		campaigns:     make(map[string]*domain.Campaign),
		milestones:    make(map[string]*domain.Milestone),
		donations:     make(map[string]*domain.Donation),
		organizations: make(map[string]*domain.OrganizationAccount),
	}
	s.Campaigns = campaignRepo{s}
	s.Milestones = milestoneRepo{s}
	s.Donations = donationRepo{s}
	s.Organizations = organizationRepo{s}
	s.Notifications = notificationRepo{s}
	s.Dispatcher = dispatcher{s}
	return s
}

// Sent returns a copy of every dispatched notification, oldest first.
func (s *Store) Sent() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.sent...)
}

// Appended returns a copy of the persisted notification feed.
func (s *Store) Appended() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.notifications...)
}

// --- campaigns ---

type campaignRepo struct{ s *Store }

func (r campaignRepo) Create(ctx context.Context, campaign *domain.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *campaign
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	r.s.campaigns[c.ID] = &c
	return nil
}

func (r campaignRepo) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r campaignRepo) UpdateStatus(ctx context.Context, id string, from, to domain.CampaignStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

// --- milestones ---

type milestoneRepo struct{ s *Store }

func (r milestoneRepo) CreateAll(ctx context.Context, milestones []*domain.Milestone) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range milestones {
		cp := *m
		r.s.milestones[cp.ID] = &cp
	}
	return nil
}

func (r milestoneRepo) GetByID(ctx context.Context, id string) (*domain.Milestone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.milestones[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (r milestoneRepo) GetByIndex(ctx context.Context, campaignID string, index int) (*domain.Milestone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.milestones {
		if m.CampaignID == campaignID && m.Index == index {
			out := *m
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r milestoneRepo) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Milestone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []domain.Milestone
	for _, m := range r.s.milestones {
		if m.CampaignID == campaignID {
			items = append(items, *m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Index < items[j].Index })
	return items, nil
}

func (r milestoneRepo) ListOverdueProof(ctx context.Context, now time.Time) ([]domain.Milestone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []domain.Milestone
	for _, m := range r.s.milestones {
		if m.Status == domain.MilestoneStatusPendingProof && m.ProofDeadline != nil && m.ProofDeadline.Before(now) {
			items = append(items, *m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r milestoneRepo) ListUnenforcedFailures(ctx context.Context) ([]domain.Milestone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var items []domain.Milestone
	for _, m := range r.s.milestones {
		if m.Status != domain.MilestoneStatusFailedDeadline {
			continue
		}
		c, ok := r.s.campaigns[m.CampaignID]
		if !ok {
			continue
		}
		o, ok := r.s.organizations[c.OrgID]
		if !ok || o.Status != domain.AccountStatusActive {
			continue
		}
		items = append(items, *m)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r milestoneRepo) transition(id string, from, to domain.MilestoneStatus, mutate func(*domain.Milestone)) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.milestones[id]
	if !ok || m.Status != from {
		return false, nil
	}
	m.Status = to
	if mutate != nil {
		mutate(m)
	}
	return true, nil
}

func (r milestoneRepo) Activate(ctx context.Context, id string) (bool, error) {
	return r.transition(id, domain.MilestoneStatusLocked, domain.MilestoneStatusActive, nil)
}

func (r milestoneRepo) BeginProofWindow(ctx context.Context, id string, deadline time.Time) (bool, error) {
	return r.transition(id, domain.MilestoneStatusActive, domain.MilestoneStatusPendingProof, func(m *domain.Milestone) {
		d := deadline
		m.ProofDeadline = &d
	})
}

func (r milestoneRepo) RecordProof(ctx context.Context, id string, description string, images, invoices []string, submittedAt time.Time) (bool, error) {
	return r.transition(id, domain.MilestoneStatusPendingProof, domain.MilestoneStatusPendingReview, func(m *domain.Milestone) {
		m.ProofDescription = description
		m.ProofImages = append([]string(nil), images...)
		m.ProofInvoices = append([]string(nil), invoices...)
		t := submittedAt
		m.SubmittedAt = &t
	})
}

func (r milestoneRepo) Approve(ctx context.Context, id string, approvedAt time.Time) (bool, error) {
	return r.transition(id, domain.MilestoneStatusPendingReview, domain.MilestoneStatusApproved, func(m *domain.Milestone) {
		t := approvedAt
		m.ApprovedAt = &t
		m.ProofDeadline = nil
		m.SettlementStatus = domain.SettlementStatusPending
	})
}

func (r milestoneRepo) Reject(ctx context.Context, id string, deadline time.Time) (bool, error) {
	return r.transition(id, domain.MilestoneStatusPendingReview, domain.MilestoneStatusPendingProof, func(m *domain.Milestone) {
		d := deadline
		m.ProofDeadline = &d
		m.SubmittedAt = nil
	})
}

func (r milestoneRepo) MarkFailedDeadline(ctx context.Context, id string) (bool, error) {
	return r.transition(id, domain.MilestoneStatusPendingProof, domain.MilestoneStatusFailedDeadline, nil)
}

func (r milestoneRepo) ClaimSettlement(ctx context.Context) (*domain.Milestone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var claimable []*domain.Milestone
	for _, m := range r.s.milestones {
		if m.Status == domain.MilestoneStatusApproved && m.SettlementStatus == domain.SettlementStatusPending {
			claimable = append(claimable, m)
		}
	}
	if len(claimable) == 0 {
		return nil, nil
	}
	sort.Slice(claimable, func(i, j int) bool { return claimable[i].ID < claimable[j].ID })
	m := claimable[0]
	m.SettlementStatus = domain.SettlementStatusSigning
	out := *m
	return &out, nil
}

func (r milestoneRepo) CompleteSettlement(ctx context.Context, id string, txHash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.milestones[id]
	if !ok || m.SettlementStatus != domain.SettlementStatusSigning {
		return false, nil
	}
	m.SettlementStatus = domain.SettlementStatusSettled
	hash := txHash
	m.PayoutTxHash = &hash
	return true, nil
}

func (r milestoneRepo) ReleaseSettlement(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.milestones[id]
	if !ok || m.SettlementStatus != domain.SettlementStatusSigning {
		return false, nil
	}
	m.SettlementStatus = domain.SettlementStatusPending
	return true, nil
}

// --- donations ---

type donationRepo struct{ s *Store }

func (r donationRepo) Create(ctx context.Context, donation *domain.Donation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d := *donation
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	r.s.donations[d.ID] = &d
	return nil
}

func (r donationRepo) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.donations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (r donationRepo) Complete(ctx context.Context, id string, txRef string) (*domain.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.donations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if d.Status != domain.DonationStatusPending {
		return nil, domain.ErrStateConflict
	}
	d.Status = domain.DonationStatusCompleted
	ref := txRef
	d.TxRef = &ref

	if c, ok := r.s.campaigns[d.CampaignID]; ok {
		var sum int64
		for _, other := range r.s.donations {
			if other.CampaignID == d.CampaignID && other.Status == domain.DonationStatusCompleted {
				sum += other.Amount
			}
		}
		c.CollectedAmount = sum
	}

	out := *d
	return &out, nil
}

func (r donationRepo) Fail(ctx context.Context, id string) (*domain.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.donations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if d.Status != domain.DonationStatusPending {
		return nil, domain.ErrStateConflict
	}
	d.Status = domain.DonationStatusFailed
	out := *d
	return &out, nil
}

func (r donationRepo) SumCompletedByMilestone(ctx context.Context, campaignID string) (map[int]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	totals := make(map[int]int64)
	for _, d := range r.s.donations {
		if d.CampaignID == campaignID && d.Status == domain.DonationStatusCompleted {
			totals[d.MilestoneIndex] += d.Amount
		}
	}
	return totals, nil
}

func (r donationRepo) SumCompletedByMilestoneForDonor(ctx context.Context, campaignID, donorID string) (map[int]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	totals := make(map[int]int64)
	for _, d := range r.s.donations {
		if d.CampaignID == campaignID && d.Status == domain.DonationStatusCompleted && d.DonorID != nil && *d.DonorID == donorID {
			totals[d.MilestoneIndex] += d.Amount
		}
	}
	return totals, nil
}

func (r donationRepo) UnlinkDonor(ctx context.Context, donorID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.donations {
		if d.DonorID != nil && *d.DonorID == donorID {
			d.DonorID = nil
		}
	}
	return nil
}

// --- organizations ---

type organizationRepo struct{ s *Store }

func (r organizationRepo) Create(ctx context.Context, org *domain.OrganizationAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o := *org
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	r.s.organizations[o.ID] = &o
	return nil
}

func (r organizationRepo) GetByID(ctx context.Context, id string) (*domain.OrganizationAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.organizations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *o
	return &out, nil
}

func (r organizationRepo) Block(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.organizations[id]
	if !ok || o.Status != domain.AccountStatusActive {
		return false, nil
	}
	o.Status = domain.AccountStatusBlocked
	o.BlockedReason = reason
	t := at
	o.BlockedAt = &t
	return true, nil
}

// --- notifications ---

type notificationRepo struct{ s *Store }

func (r notificationRepo) Append(ctx context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

type dispatcher struct{ s *Store }

func (d dispatcher) Send(ctx context.Context, n domain.Notification) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.sent = append(d.s.sent, n)
	return nil
}
