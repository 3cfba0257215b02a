package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmanacadamy/Ver/internal/api/dto"
	"github.com/freshmanacadamy/Ver/internal/auth"
	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/gateway"
	"github.com/freshmanacadamy/Ver/internal/intent"
	"github.com/freshmanacadamy/Ver/internal/router"
	apperrors "github.com/freshmanacadamy/Ver/pkg/util/errorutil"
)

func textEvent(t *testing.T, from int64, text string) router.Event {
	t.Helper()
	ev, ok := router.Classify(dto.Update{Message: &dto.Message{
		From: &dto.User{ID: from, FirstName: "user"},
		Chat: dto.Chat{ID: from, Type: "private"},
		Text: text,
	}})
	require.True(t, ok)
	return ev
}

func photoEvent(t *testing.T, from int64, fileID string) router.Event {
	t.Helper()
	ev, ok := router.Classify(dto.Update{Message: &dto.Message{
		From:  &dto.User{ID: from},
		Chat:  dto.Chat{ID: from, Type: "private"},
		Photo: []dto.PhotoSize{{FileID: fileID, Width: 10, Height: 10}},
	}})
	require.True(t, ok)
	return ev
}

func buttonEvent(t *testing.T, from int64, data string) router.Event {
	t.Helper()
	ev, ok := router.Classify(dto.Update{CallbackQuery: &dto.CallbackQuery{
		ID:   "cb",
		From: dto.User{ID: from},
		Data: data,
	}})
	require.True(t, ok)
	return ev
}

func TestEngine_ListingScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU1, "/sell")))
	assert.Equal(t, textAskImage, h.gw.last(userU1).Text)
	require.NoError(t, h.engine.Handle(ctx, photoEvent(t, userU1, "file-1")))
	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU1, "Calculus Textbook")))

	err := h.engine.Handle(ctx, textEvent(t, userU1, "abc"))
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	session, ok := h.conversations.Active(userU1)
	require.True(t, ok)
	assert.Equal(t, domain.StateAwaitingPrice, session.State)

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU1, "1,500 birr")))
	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU1, "/skip")))
	assert.Equal(t, textAskCategory, h.gw.last(userU1).Text)
	require.NoError(t, h.engine.Handle(ctx, buttonEvent(t, userU1, intent.CategoryData(domain.CategoryElectronics))))

	own := h.listingRepo.ListByOwner(userU1)
	require.Len(t, own, 1)
	assert.Equal(t, domain.ListingPending, own[0].Status)
	assert.Equal(t, int64(1500), own[0].Price)
	assert.Equal(t, domain.NoDescription, own[0].Description)
	assert.Contains(t, h.gw.last(userU1).Text, "submitted")
	assert.Contains(t, h.gw.answered, "cb")
}

func TestEngine_ModerationAndChatScenarios(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := pendingListing(t, h, userU1)

	require.NoError(t, h.engine.Handle(ctx, buttonEvent(t, adminA1, intent.ModerateData(listing.ID, domain.DecisionApprove))))
	err := h.engine.Handle(ctx, textEvent(t, adminA2, "/approve 1"))
	assert.ErrorIs(t, err, domain.ErrAlreadyDecided)
	stored, _ := h.listingRepo.Get(listing.ID)
	assert.Equal(t, domain.ListingApproved, stored.Status)

	require.NoError(t, h.engine.Handle(ctx, buttonEvent(t, userU2, intent.ContactData(listing.ID))))
	s1, ok := h.chats.Lookup(userU1)
	require.True(t, ok)
	s2, ok := h.chats.Lookup(userU2)
	require.True(t, ok)
	assert.Same(t, s1, s2)

	err = h.engine.Handle(ctx, buttonEvent(t, userU3, intent.ContactData(listing.ID)))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	still, _ := h.chats.Lookup(userU1)
	assert.Same(t, s1, still)

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU2, "/endchat")))
	_, ok = h.chats.Lookup(userU1)
	assert.False(t, ok)
	_, ok = h.chats.Lookup(userU2)
	assert.False(t, ok)

	err = h.engine.Handle(ctx, textEvent(t, userU2, "/endchat"))
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestEngine_RelayTakesPriorityOverCommands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.approvedListing(t, userU1, "Lamp")
	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU2, "/contact 1")))
	require.Equal(t, listing.ID, mustLookup(t, h, userU2).ListingID)
	h.gw.reset()

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU2, "/sell")))
	assert.Equal(t, "/sell", h.gw.last(userU1).Text)
	assert.Equal(t, textDelivered, h.gw.last(userU2).Text)
	_, drafting := h.conversations.Active(userU2)
	assert.False(t, drafting)

	require.NoError(t, h.engine.Handle(ctx, photoEvent(t, userU1, "pic")))
	assert.Equal(t, "pic", h.gw.last(userU2).MediaRef)

	// buttons are not relayed
	require.NoError(t, h.engine.Handle(ctx, buttonEvent(t, userU2, intent.SellData)))
	_, drafting = h.conversations.Active(userU2)
	assert.True(t, drafting)

	assert.Len(t, mustLookup(t, h, userU1).Messages(), 2)
}

func mustLookup(t *testing.T, h *harness, id int64) *domain.ChatSession {
	t.Helper()
	s, ok := h.chats.Lookup(id)
	require.True(t, ok)
	return s
}

func TestEngine_BroadcastScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.gw.fail(userU2)

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, adminA1, "/broadcast exam week sale")))
	h.engine.Wait()

	report := h.gw.last(adminA1).Text
	assert.Contains(t, report, "5 attempted, 4 delivered, 1 failed")

	err := h.engine.Handle(ctx, textEvent(t, userU1, "/broadcast spam"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestEngine_SerializesSameIdentity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, ev := range []router.Event{
		textEvent(t, userU1, "/sell"),
		photoEvent(t, userU1, "f"),
		textEvent(t, userU1, "Desk"),
		textEvent(t, userU1, "800"),
		textEvent(t, userU1, "/skip"),
	} {
		require.NoError(t, h.engine.Handle(ctx, ev))
	}

	choose := buttonEvent(t, userU1, intent.CategoryData(domain.CategoryFurniture))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.engine.Handle(ctx, choose)
		}()
	}
	wg.Wait()

	assert.Len(t, h.listingRepo.ListByOwner(userU1), 1)
}

func TestEngine_BannedAndMaintenance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.approvedListing(t, userU1, "Lamp")
	require.NoError(t, h.engine.Handle(ctx, buttonEvent(t, userU2, intent.ContactData(listing.ID))))

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, adminA1, "/ban 2")))
	assert.Equal(t, 0, h.chats.Count())
	err := h.engine.Handle(ctx, textEvent(t, userU2, "/sell"))
	assert.ErrorIs(t, err, domain.ErrIdentityBanned)
	assert.Equal(t, textBanned, h.gw.last(userU2).Text)

	err = h.engine.Handle(ctx, textEvent(t, adminA1, "/ban 901"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, adminA1, "/unban 2")))
	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU2, "/sell")))

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, adminA1, "/maintenance on")))
	err = h.engine.Handle(ctx, textEvent(t, userU3, "/browse"))
	assert.ErrorIs(t, err, domain.ErrMaintenance)
	require.NoError(t, h.engine.Handle(ctx, textEvent(t, adminA2, "/browse")))
	require.NoError(t, h.engine.Handle(ctx, textEvent(t, adminA1, "/maintenance off")))
	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU3, "/browse")))
}

func TestEngine_AdminCommandsDeniedForUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, text := range []string{"/pending", "/stats", "/ban 3", "/viewchats", "/endchatfor 1", "/msg 1 hi", "/approve 1", "/users", "/user 1"} {
		err := h.engine.Handle(ctx, textEvent(t, userU1, text))
		assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden), text)
	}
}

func TestEngine_ExpireStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.approvedListing(t, userU1, "Lamp")
	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU3, "/sell")))
	require.NoError(t, h.engine.Handle(ctx, buttonEvent(t, userU2, intent.ContactData(listing.ID))))

	h.clock.Advance(10 * time.Minute)
	convs, chats := h.engine.ExpireStale(ctx)
	assert.Zero(t, convs)
	assert.Zero(t, chats)

	h.clock.Advance(25 * time.Minute)
	convs, chats = h.engine.ExpireStale(ctx)
	assert.Equal(t, 1, convs)
	assert.Zero(t, chats)
	assert.Equal(t, textExpiredDraft, h.gw.last(userU3).Text)

	h.clock.Advance(24 * time.Hour)
	_, chats = h.engine.ExpireStale(ctx)
	assert.Equal(t, 1, chats)
	assert.Equal(t, 0, h.chats.Count())
}

func TestEngine_StatsAndViewChats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.approvedListing(t, userU1, "Lamp")
	require.NoError(t, h.engine.Handle(ctx, buttonEvent(t, userU2, intent.ContactData(listing.ID))))
	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU2, "hello")))

	stats := h.engine.Stats()
	assert.Equal(t, 5, stats.Identities)
	assert.Equal(t, 1, stats.Listings[domain.ListingApproved])
	assert.Equal(t, 1, stats.ActiveChats)

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, adminA1, "/viewchats 1")))
	view := h.gw.last(adminA1).Text
	assert.Contains(t, view, "hello")
	assert.True(t, strings.HasPrefix(view, "Chat 2 with 1"))

	err := h.engine.Handle(ctx, textEvent(t, adminA1, "/viewchats 3"))
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestEngine_ReportReachesAdmins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.approvedListing(t, userU1, "Lamp")

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU3, "/report 1 looks fake")))
	assert.Equal(t, textReportThanks, h.gw.last(userU3).Text)
	assert.Contains(t, h.gw.last(adminA1).Text, "looks fake")
	assert.Contains(t, h.gw.last(adminA2).Text, listing.Title)

	err := h.engine.Handle(ctx, textEvent(t, userU3, "/report 99 nope"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestEngine_DeepLinks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	listing := h.approvedListing(t, userU1, "Lamp")

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU2, "/start product_1")))
	assert.Equal(t, listing.MediaRef, h.gw.last(userU2).MediaRef)

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU3, "/start sell")))
	_, drafting := h.conversations.Active(userU3)
	assert.True(t, drafting)

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU2, "/start contact_1")))
	assert.Equal(t, 1, h.chats.Count())
}

func TestEngine_SweepRunsAlongsideEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sell := textEvent(t, userU1, "/sell")
	photo := photoEvent(t, userU1, "f")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = h.engine.Handle(ctx, sell)
			_ = h.engine.Handle(ctx, photo)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			h.clock.Advance(time.Minute)
			h.engine.ExpireStale(ctx)
		}
	}()
	wg.Wait()

	assert.LessOrEqual(t, h.conversations.Count(), 1)
}

func TestEngine_ExpireSkipsSessionTouchedAfterScan(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU1, "/sell")))

	h.clock.Advance(29 * time.Minute)
	require.NoError(t, h.engine.Handle(ctx, photoEvent(t, userU1, "f")))
	h.clock.Advance(5 * time.Minute)

	convs, _ := h.engine.ExpireStale(ctx)
	assert.Zero(t, convs)
	session, ok := h.conversations.Active(userU1)
	require.True(t, ok)
	assert.Equal(t, domain.StateAwaitingTitle, session.State)
}

func TestEngine_WaitTimeoutDrainsBroadcasts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, adminA1, "/testbroadcast ping")))
	assert.True(t, h.engine.WaitTimeout(time.Second))
	assert.Contains(t, h.gw.last(adminA1).Text, "1 delivered")
}

// contextGateway refuses sends on a finished context, as a network client would.
type contextGateway struct{ gateway.Gateway }

func (g contextGateway) Send(ctx context.Context, recipient int64, content gateway.Content) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.Gateway.Send(ctx, recipient, content)
}

func TestEngine_WaitTimeoutReportsStuckBroadcast(t *testing.T) {
	h := newHarness(t)
	base, cancel := context.WithCancel(context.Background())
	defer cancel()

	admins := auth.NewAdminList([]int64{adminA1, adminA2})
	slow := NewBroadcastService(BroadcastDependencies{
		Identities: h.identityRepo,
		Admins:     admins,
		Gateway:    h.gw,
		Delay:      time.Hour,
	})
	engine := NewEngine(EngineDependencies{
		Identities:    h.identities,
		Listings:      h.listingRepo,
		Conversations: h.conversations,
		Moderation:    h.moderation,
		Chats:         h.chats,
		Broadcasts:    slow,
		Admins:        admins,
		Gateway:       contextGateway{h.gw},
		Dispatcher:    h.dispatcher,
		Clock:         h.clock.Now,
		BaseContext:   base,
	})

	require.NoError(t, engine.Handle(context.Background(), textEvent(t, adminA1, "/notifyadmins meeting")))
	assert.False(t, engine.WaitTimeout(20*time.Millisecond))

	cancel()
	assert.True(t, engine.WaitTimeout(time.Second))
	assert.Contains(t, h.gw.last(adminA1).Text, "1 attempted")
}

func TestEngine_UsersPagingAndProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for id := int64(100); id < 112; id++ {
		h.identities.Observe(domain.Profile{ID: id, FirstName: "student", Username: "s" + strconv.FormatInt(id, 10)})
	}
	h.approvedListing(t, 100, "Lamp")
	pendingListing(t, h, 100)
	_, err := h.identities.SetBanned(ctx, adminA1, 101, true)
	require.NoError(t, err)

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, adminA1, "/users")))
	first := h.gw.last(adminA1)
	assert.Contains(t, first.Text, "Users 1-10 of 17")
	assert.Contains(t, first.Text, "101 @s101 [banned]")
	nav := first.Actions[len(first.Actions)-1]
	require.Len(t, nav, 1)
	assert.Equal(t, intent.UsersPageData(1), nav[0].Data)

	require.NoError(t, h.engine.Handle(ctx, buttonEvent(t, adminA1, nav[0].Data)))
	second := h.gw.last(adminA1)
	assert.Contains(t, second.Text, "Users 11-17 of 17")
	nav = second.Actions[len(second.Actions)-1]
	require.Len(t, nav, 1)
	assert.Equal(t, intent.UsersPageData(0), nav[0].Data)

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, adminA1, "/users 5")))
	assert.Equal(t, textNoUsers, h.gw.last(adminA1).Text)

	require.NoError(t, h.engine.Handle(ctx, buttonEvent(t, adminA1, intent.ViewUserData(100))))
	profile := h.gw.last(adminA1).Text
	assert.Contains(t, profile, "Handle: @s100")
	assert.Contains(t, profile, "Listings: 1 approved, 1 pending, 0 rejected")
	assert.Contains(t, profile, "Status: active")

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, adminA1, "/user 101")))
	assert.Contains(t, h.gw.last(adminA1).Text, "Status: banned")

	err = h.engine.Handle(ctx, textEvent(t, adminA1, "/user 999"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestEngine_SupportRequestReachesAdmins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Handle(ctx, textEvent(t, userU1, "/support my listing is stuck")))
	assert.Equal(t, textSupportSent, h.gw.last(userU1).Text)
	for _, admin := range []int64{adminA1, adminA2} {
		notice := h.gw.last(admin).Text
		assert.Contains(t, notice, "my listing is stuck")
		assert.Contains(t, notice, "/msg 1 <text>")
	}

	err := h.engine.Handle(ctx, textEvent(t, userU2, "/support"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}
