package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/freshmanacadamy/Ver/internal/auth"
	"github.com/freshmanacadamy/Ver/internal/config"
	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/events"
	"github.com/freshmanacadamy/Ver/internal/gateway"
	"github.com/freshmanacadamy/Ver/internal/observability"
	"github.com/freshmanacadamy/Ver/internal/repository"
)

var errUnreachable = errors.New("chat not found")

// MockAuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) ListBySubject(ctx context.Context, subjectID int64, limit int) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, subjectID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}

type sent struct {
	Recipient int64
	Content   gateway.Content
}

// fakeGateway records outbound traffic and fails for chosen recipients.
type fakeGateway struct {
	mu        sync.Mutex
	sends     []sent
	published []gateway.Content
	answered  []string
	failing   map[int64]bool
	failPub   bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failing: map[int64]bool{}}
}

func (g *fakeGateway) Send(_ context.Context, recipient int64, content gateway.Content) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing[recipient] {
		return errUnreachable
	}
	g.sends = append(g.sends, sent{Recipient: recipient, Content: content})
	return nil
}

func (g *fakeGateway) Publish(_ context.Context, _ string, content gateway.Content) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failPub {
		return errUnreachable
	}
	g.published = append(g.published, content)
	return nil
}

func (g *fakeGateway) AnswerCallback(_ context.Context, callbackID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answered = append(g.answered, callbackID)
	return nil
}

func (g *fakeGateway) fail(recipient int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failing[recipient] = true
}

func (g *fakeGateway) to(recipient int64) []gateway.Content {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []gateway.Content
	for _, s := range g.sends {
		if s.Recipient == recipient {
			out = append(out, s.Content)
		}
	}
	return out
}

func (g *fakeGateway) last(recipient int64) gateway.Content {
	msgs := g.to(recipient)
	if len(msgs) == 0 {
		return gateway.Content{}
	}
	return msgs[len(msgs)-1]
}

func (g *fakeGateway) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sends = nil
	g.published = nil
}

// fixedClock is a manually advanced clock.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const (
	adminA1 int64 = 900
	adminA2 int64 = 901
	userU1  int64 = 1
	userU2  int64 = 2
	userU3  int64 = 3
)

type harness struct {
	gw            *fakeGateway
	clock         *fixedClock
	audit         *MockAuditRepository
	dispatcher    events.Dispatcher
	identityRepo  repository.IdentityRepository
	listingRepo   repository.ListingRepository
	identities    *IdentityService
	conversations *ConversationService
	moderation    *ModerationService
	chats         *ChatService
	broadcasts    *BroadcastService
	notifications *NotificationService
	metrics       *observability.Metrics
	engine        *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gw:           newFakeGateway(),
		clock:        newFixedClock(),
		audit:        &MockAuditRepository{},
		dispatcher:   events.NewInMemoryDispatcher(),
		identityRepo: repository.NewIdentityRepository(),
		listingRepo:  repository.NewListingRepository(),
		metrics:      observability.NewMetrics(),
	}
	h.audit.On("Record", mock.Anything, mock.Anything).Return(nil)

	admins := auth.NewAdminList([]int64{adminA1, adminA2})
	cfg := config.MarketplaceConfig{
		PriceCeiling: 10_000_000,
		SessionTTL:   30 * time.Minute,
		ChatTTL:      24 * time.Hour,
	}

	h.identities = NewIdentityService(h.identityRepo, h.audit, admins, nil, h.clock.Now)
	h.conversations = NewConversationService(ConversationDependencies{
		Sessions:     repository.NewConversationRepository(),
		Listings:     h.listingRepo,
		Identities:   h.identityRepo,
		Dispatcher:   h.dispatcher,
		PriceCeiling: cfg.PriceCeiling,
		Clock:        h.clock.Now,
	})
	h.moderation = NewModerationService(ModerationDependencies{
		Listings:   h.listingRepo,
		Audit:      h.audit,
		Admins:     admins,
		Gateway:    h.gw,
		Dispatcher: h.dispatcher,
		Channel:    "@jumarket",
		Clock:      h.clock.Now,
	})
	h.chats = NewChatService(ChatDependencies{
		Chats:      repository.NewChatRepository(),
		Listings:   h.listingRepo,
		Identities: h.identityRepo,
		Audit:      h.audit,
		Admins:     admins,
		Gateway:    h.gw,
		Dispatcher: h.dispatcher,
		Clock:      h.clock.Now,
	})
	h.broadcasts = NewBroadcastService(BroadcastDependencies{
		Identities: h.identityRepo,
		Audit:      h.audit,
		Admins:     admins,
		Gateway:    h.gw,
		Metrics:    h.metrics,
		Clock:      h.clock.Now,
	})
	h.notifications = NewNotificationService(h.dispatcher, h.gw, admins, h.identityRepo, h.listingRepo, nil)
	h.notifications.RegisterHandlers()
	h.engine = NewEngine(EngineDependencies{
		Identities:    h.identities,
		Listings:      h.listingRepo,
		Conversations: h.conversations,
		Moderation:    h.moderation,
		Chats:         h.chats,
		Broadcasts:    h.broadcasts,
		Admins:        admins,
		Gateway:       h.gw,
		Dispatcher:    h.dispatcher,
		Audit:         h.audit,
		Metrics:       h.metrics,
		Config:        cfg,
		Clock:         h.clock.Now,
	})

	for _, id := range []int64{userU1, userU2, userU3, adminA1, adminA2} {
		h.identities.Observe(domain.Profile{ID: id, FirstName: "user"})
	}
	return h
}

// approvedListing files a listing for owner and approves it as adminA1.
func (h *harness) approvedListing(t *testing.T, owner int64, title string) domain.Listing {
	t.Helper()
	listing, err := h.listingRepo.Create(owner, domain.Draft{
		MediaRef:    "photo-" + title,
		Title:       title,
		Price:       1500,
		Description: domain.NoDescription,
		Category:    domain.CategoryAcademicBooks,
	}, h.clock.Now())
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	listing, err = h.moderation.Decide(context.Background(), adminA1, listing.ID, domain.DecisionApprove)
	if err != nil {
		t.Fatalf("approve listing: %v", err)
	}
	h.gw.reset()
	return listing
}
