package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/freshmanacadamy/Ver/internal/config"
	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/events"
	"github.com/freshmanacadamy/Ver/internal/gateway"
	"github.com/freshmanacadamy/Ver/internal/intent"
	"github.com/freshmanacadamy/Ver/internal/keylock"
	"github.com/freshmanacadamy/Ver/internal/observability"
	"github.com/freshmanacadamy/Ver/internal/repository"
	"github.com/freshmanacadamy/Ver/internal/router"
	apperrors "github.com/freshmanacadamy/Ver/pkg/util/errorutil"
)

const (
	listPageSize = 10
	chatLogTail  = 20

	broadcastReportTimeout = 5 * time.Second
)

// Engine routes classified events to the workflow services. Events from
// the same identity are handled one at a time; different identities run
// in parallel.
type Engine struct {
	identities    *IdentityService
	listings      repository.ListingRepository
	conversations *ConversationService
	moderation    *ModerationService
	chats         *ChatService
	broadcasts    *BroadcastService
	admins        Admins
	gateway       gateway.Gateway
	dispatcher    events.Dispatcher
	audit         repository.AuditRepository
	metrics       *observability.Metrics
	locks         *keylock.Locker
	logger        *zap.Logger
	cfg           config.MarketplaceConfig
	now           func() time.Time

	baseCtx     context.Context
	maintenance atomic.Bool
	background  sync.WaitGroup
}

// EngineDependencies bundles the engine's collaborators.
type EngineDependencies struct {
	Identities    *IdentityService
	Listings      repository.ListingRepository
	Conversations *ConversationService
	Moderation    *ModerationService
	Chats         *ChatService
	Broadcasts    *BroadcastService
	Admins        Admins
	Gateway       gateway.Gateway
	Dispatcher    events.Dispatcher
	Audit         repository.AuditRepository
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Config        config.MarketplaceConfig
	Clock         func() time.Time
	// BaseContext bounds work that outlives a single event, such as broadcasts.
	BaseContext context.Context
}

// Stats is the admin overview.
type Stats struct {
	Identities        int                           `json:"identities"`
	Listings          map[domain.ListingStatus]int  `json:"listings"`
	ActiveChats       int                           `json:"active_chats"`
	OpenConversations int                           `json:"open_conversations"`
	Maintenance       bool                          `json:"maintenance"`
	Metrics           observability.MetricsSnapshot `json:"metrics"`
}

// NewEngine constructs the engine.
func NewEngine(deps EngineDependencies) *Engine {
	base := deps.BaseContext
	if base == nil {
		base = context.Background()
	}
	e := &Engine{
		identities:    deps.Identities,
		listings:      deps.Listings,
		conversations: deps.Conversations,
		moderation:    deps.Moderation,
		chats:         deps.Chats,
		broadcasts:    deps.Broadcasts,
		admins:        deps.Admins,
		gateway:       deps.Gateway,
		dispatcher:    deps.Dispatcher,
		audit:         deps.Audit,
		metrics:       deps.Metrics,
		locks:         keylock.New(),
		logger:        loggerOrNop(deps.Logger),
		cfg:           deps.Config,
		now:           clockOrNow(deps.Clock),
		baseCtx:       base,
	}
	e.maintenance.Store(deps.Config.MaintenanceMode)
	return e
}

// Handle processes one event and reports any failure back to the actor.
// The returned error is the one the actor was told about.
func (e *Engine) Handle(ctx context.Context, ev router.Event) error {
	if ev.Intent == nil {
		return nil
	}
	kind := string(ev.Intent.Kind())
	e.metrics.RecordIntent(kind)
	actor := e.identities.Observe(ev.Actor)

	unlock := e.locks.Lock(actor.ID)
	err := e.dispatch(ctx, actor, ev)
	unlock()

	if ev.CallbackID != "" {
		if cbErr := e.gateway.AnswerCallback(ctx, ev.CallbackID, ""); cbErr != nil {
			e.logger.Debug("answer callback failed", zap.String("callback_id", ev.CallbackID), zap.Error(cbErr))
		}
	}
	if err == nil {
		return nil
	}

	de := apperrors.ToDomainError(err)
	e.metrics.RecordError(kind, de.Code)
	if de.HTTPStatus >= 500 {
		e.logger.Error("intent failed", zap.String("intent", kind), zap.Int64("identity_id", actor.ID), zap.Error(err))
	} else {
		e.logger.Debug("intent rejected", zap.String("intent", kind), zap.Int64("identity_id", actor.ID),
			zap.String("code", de.Code), zap.Error(err))
	}
	e.reply(ctx, actor.ID, errorReply(err))
	return err
}

func (e *Engine) dispatch(ctx context.Context, actor domain.Identity, ev router.Event) error {
	isAdmin := e.admins.IsAdmin(actor.ID)
	if actor.Banned && !isAdmin {
		return apperrors.NewDenied(domain.ErrIdentityBanned)
	}
	if e.maintenance.Load() && !isAdmin {
		return apperrors.NewDenied(domain.ErrMaintenance)
	}

	// Typed or sent messages from a paired identity go to the partner,
	// commands included. Only an explicit end-chat escapes the relay.
	if ev.FromMessage() {
		if _, paired := e.chats.Lookup(actor.ID); paired {
			if _, end := ev.Intent.(intent.EndChat); !end {
				return e.relay(ctx, actor.ID, ev)
			}
		}
	}

	if intent.AdminOnly(ev.Intent) && !isAdmin {
		return apperrors.NewDenied(domain.ErrAdminRequired)
	}

	switch in := ev.Intent.(type) {
	case intent.Start:
		return e.start(ctx, actor, in.Payload, isAdmin)
	case intent.Help:
		return e.help(ctx, actor.ID, isAdmin)
	case intent.BeginListing:
		return e.beginListing(ctx, actor.ID)
	case intent.MediaReceived:
		return e.media(ctx, actor.ID, in)
	case intent.TextReceived:
		return e.text(ctx, actor.ID, in)
	case intent.CategoryChosen:
		return e.chooseCategory(ctx, actor.ID, in.Category)
	case intent.Cancel:
		if err := e.conversations.Cancel(actor.ID); err != nil {
			return err
		}
		e.reply(ctx, actor.ID, gateway.Text(textCancelled))
		return nil
	case intent.OpenChat:
		_, err := e.chats.Open(ctx, actor.ID, in.Counterpart, in.ListingID)
		return err
	case intent.EndChat:
		if _, err := e.chats.Close(ctx, actor.ID); err != nil {
			return err
		}
		e.reply(ctx, actor.ID, gateway.Text(textChatEnded))
		return nil
	case intent.Moderate:
		listing, err := e.moderation.Decide(ctx, actor.ID, in.ListingID, in.Decision)
		if err != nil {
			return err
		}
		e.reply(ctx, actor.ID, decisionAck(listing))
		return nil
	case intent.Broadcast:
		job, err := e.broadcasts.Submit(ctx, actor.ID, in.Body, in.Scope)
		if err != nil {
			return err
		}
		e.reply(ctx, actor.ID, broadcastQueued(job))
		e.runBroadcast(job)
		return nil
	case intent.MyListings:
		return e.myListings(ctx, actor.ID)
	case intent.Browse:
		return e.browse(ctx, actor.ID)
	case intent.ShowListing:
		return e.showListing(ctx, actor.ID, in.ListingID, isAdmin)
	case intent.PendingQueue:
		return e.pendingQueue(ctx, actor.ID)
	case intent.Ban:
		return e.setBanned(ctx, actor.ID, in.Target, true)
	case intent.Unban:
		return e.setBanned(ctx, actor.ID, in.Target, false)
	case intent.Maintenance:
		e.SetMaintenance(ctx, actor.ID, in.Enabled)
		state := "off"
		if in.Enabled {
			state = "on"
		}
		e.reply(ctx, actor.ID, gateway.Text("Maintenance mode is "+state+"."))
		return nil
	case intent.Stats:
		e.reply(ctx, actor.ID, gateway.Text(formatStats(e.Stats())))
		return nil
	case intent.ViewChats:
		return e.viewChats(ctx, actor.ID, in.Target)
	case intent.ForceEndChat:
		if _, err := e.chats.ForceClose(ctx, actor.ID, in.Target); err != nil {
			return err
		}
		e.reply(ctx, actor.ID, gateway.Text(fmt.Sprintf("Chat of %d closed.", in.Target)))
		return nil
	case intent.Report:
		return e.report(ctx, actor.ID, in)
	case intent.DirectMessage:
		if err := e.gateway.Send(ctx, in.Target, gateway.Text("Message from the admins:\n\n"+in.Body)); err != nil {
			return apperrors.NewDeliveryFailure(in.Target, err)
		}
		e.reply(ctx, actor.ID, gateway.Text("Sent."))
		return nil
	case intent.ListUsers:
		return e.listUsers(ctx, actor.ID, in.Page)
	case intent.ViewUser:
		return e.viewUser(ctx, actor.ID, in.Target)
	case intent.ContactAdmins:
		publish(ctx, e.dispatcher, e.logger, events.New(events.EventSupportRequest, actor.ID, e.now(),
			events.SupportRequestPayload{IdentityID: actor.ID, Body: in.Body}))
		e.reply(ctx, actor.ID, gateway.Text(textSupportSent))
		return nil
	case intent.Malformed:
		return apperrors.NewValidationError("usage: "+in.Usage, map[string]any{"command": in.Command})
	default:
		return apperrors.NewInternalError(fmt.Errorf("unhandled intent %T", in))
	}
}

func (e *Engine) relay(ctx context.Context, senderID int64, ev router.Event) error {
	if _, err := e.chats.Relay(ctx, senderID, ev.Text, ev.MediaRef); err != nil {
		return err
	}
	e.reply(ctx, senderID, gateway.Text(textDelivered))
	return nil
}

func (e *Engine) start(ctx context.Context, actor domain.Identity, payload string, isAdmin bool) error {
	switch {
	case payload == "sell":
		return e.beginListing(ctx, actor.ID)
	case strings.HasPrefix(payload, "product_"):
		id, err := strconv.ParseInt(strings.TrimPrefix(payload, "product_"), 10, 64)
		if err == nil {
			return e.showListing(ctx, actor.ID, id, isAdmin)
		}
	case strings.HasPrefix(payload, "contact_"):
		id, err := strconv.ParseInt(strings.TrimPrefix(payload, "contact_"), 10, 64)
		if err == nil {
			_, err = e.chats.Open(ctx, actor.ID, 0, id)
			return err
		}
	}
	welcome := gateway.Text(fmt.Sprintf("Hi %s! %s", actor.Name, textWelcome)).WithActions(
		gateway.Row(
			gateway.Action{Label: "Sell Item", Data: intent.SellData},
			gateway.Action{Label: "Browse Items", Data: intent.BrowseData},
		),
	)
	e.reply(ctx, actor.ID, welcome)
	return nil
}

func (e *Engine) help(ctx context.Context, actorID int64, isAdmin bool) error {
	text := textHelp
	if isAdmin {
		text += textAdminHelp
	}
	e.reply(ctx, actorID, gateway.Text(text))
	return nil
}

func (e *Engine) beginListing(ctx context.Context, actorID int64) error {
	session := e.conversations.Begin(actorID)
	e.reply(ctx, actorID, promptFor(session.State))
	return nil
}

func (e *Engine) media(ctx context.Context, actorID int64, in intent.MediaReceived) error {
	if _, ok := e.conversations.Active(actorID); !ok {
		e.reply(ctx, actorID, gateway.Text(textUseMenu))
		return nil
	}
	step, err := e.conversations.HandleMedia(actorID, in.Ref)
	if err != nil {
		return err
	}
	e.reply(ctx, actorID, promptFor(step.State))
	return nil
}

func (e *Engine) text(ctx context.Context, actorID int64, in intent.TextReceived) error {
	if _, ok := e.conversations.Active(actorID); !ok {
		if in.Command {
			e.reply(ctx, actorID, gateway.Text(textUnknownCommand))
		} else {
			e.reply(ctx, actorID, gateway.Text(textUseMenu))
		}
		return nil
	}
	step, err := e.conversations.HandleText(actorID, in.Text, in.Skip)
	if err != nil {
		return err
	}
	e.reply(ctx, actorID, promptFor(step.State))
	return nil
}

func (e *Engine) chooseCategory(ctx context.Context, actorID int64, category domain.Category) error {
	step, err := e.conversations.ChooseCategory(ctx, actorID, category)
	if err != nil {
		return err
	}
	e.reply(ctx, actorID, listingSubmitted(*step.Listing))
	return nil
}

func (e *Engine) myListings(ctx context.Context, actorID int64) error {
	own := e.listings.ListByOwner(actorID)
	if len(own) == 0 {
		e.reply(ctx, actorID, gateway.Text(textNoOwnItems))
		return nil
	}
	lines := []string{fmt.Sprintf("Your listings (%d):", len(own))}
	for i, l := range own {
		if i == listPageSize {
			break
		}
		lines = append(lines, ownListingLine(l))
	}
	e.reply(ctx, actorID, gateway.Text(strings.Join(lines, "\n")))
	return nil
}

func (e *Engine) browse(ctx context.Context, actorID int64) error {
	approved := e.listings.ListByStatus(domain.ListingApproved)
	if len(approved) == 0 {
		e.reply(ctx, actorID, gateway.Text(textNoItems))
		return nil
	}
	for i, l := range approved {
		if i == listPageSize {
			break
		}
		e.reply(ctx, actorID, listingCard(l))
	}
	return nil
}

func (e *Engine) showListing(ctx context.Context, actorID, listingID int64, isAdmin bool) error {
	listing, err := e.listings.Get(listingID)
	if err != nil {
		return apperrors.NewMissing(err, map[string]any{"listing_id": listingID})
	}
	switch {
	case listing.Status == domain.ListingApproved:
		e.reply(ctx, actorID, listingCard(listing))
	case listing.OwnerID == actorID || isAdmin:
		e.reply(ctx, actorID, gateway.Content{
			Text:     listingSummary(listing) + "\nStatus: " + string(listing.Status),
			MediaRef: listing.MediaRef,
		})
	default:
		return apperrors.NewMissing(domain.ErrListingNotFound, map[string]any{"listing_id": listingID})
	}
	return nil
}

func (e *Engine) pendingQueue(ctx context.Context, adminID int64) error {
	pending, err := e.moderation.Pending(adminID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		e.reply(ctx, adminID, gateway.Text(textNoPending))
		return nil
	}
	e.reply(ctx, adminID, gateway.Text(fmt.Sprintf("%d listings awaiting review.", len(pending))))
	for i, l := range pending {
		if i == listPageSize {
			break
		}
		owner, _ := e.identities.Get(l.OwnerID)
		e.reply(ctx, adminID, reviewCard(l, owner))
	}
	return nil
}

func (e *Engine) setBanned(ctx context.Context, adminID, targetID int64, banned bool) error {
	identity, err := e.identities.SetBanned(ctx, adminID, targetID, banned)
	if err != nil {
		return err
	}
	if !banned {
		e.reply(ctx, adminID, gateway.Text(fmt.Sprintf("%s (%d) is unbanned.", identity.Mention(), identity.ID)))
		return nil
	}
	e.chats.CloseBanned(ctx, adminID, targetID)
	e.reply(ctx, targetID, gateway.Text(textBanned))
	e.reply(ctx, adminID, gateway.Text(fmt.Sprintf("%s (%d) is banned.", identity.Mention(), identity.ID)))
	return nil
}

func (e *Engine) viewChats(ctx context.Context, adminID, targetID int64) error {
	if targetID == 0 {
		active := e.chats.Active()
		if len(active) == 0 {
			e.reply(ctx, adminID, gateway.Text("No active chats."))
			return nil
		}
		lines := []string{fmt.Sprintf("Active chats (%d):", len(active))}
		for _, s := range active {
			lines = append(lines, fmt.Sprintf("%d with %d on #%d, %d messages, since %s",
				s.InitiatorID, s.CounterpartID, s.ListingID, len(s.Messages()), s.StartedAt.Format(time.RFC822)))
		}
		e.reply(ctx, adminID, gateway.Text(strings.Join(lines, "\n")))
		return nil
	}

	session, ok := e.chats.Lookup(targetID)
	if !ok {
		return apperrors.NewConflict(domain.ErrNoActiveSession, map[string]any{"identity_id": targetID})
	}
	messages := session.Messages()
	lines := []string{fmt.Sprintf("Chat %d with %d on #%d (%d messages)",
		session.InitiatorID, session.CounterpartID, session.ListingID, len(messages))}
	if len(messages) > chatLogTail {
		messages = messages[len(messages)-chatLogTail:]
	}
	for _, m := range messages {
		lines = append(lines, chatLine(m))
	}
	e.reply(ctx, adminID, gateway.Text(strings.Join(lines, "\n")))
	return nil
}

func (e *Engine) listUsers(ctx context.Context, adminID int64, page int) error {
	users, total := e.identities.Page(page, listPageSize)
	if len(users) == 0 {
		e.reply(ctx, adminID, gateway.Text(textNoUsers))
		return nil
	}
	e.reply(ctx, adminID, usersPage(users, page, listPageSize, total))
	return nil
}

func (e *Engine) viewUser(ctx context.Context, adminID, targetID int64) error {
	identity, err := e.identities.Get(targetID)
	if err != nil {
		return err
	}
	counts := make(map[domain.ListingStatus]int)
	for _, l := range e.listings.ListByOwner(targetID) {
		counts[l.Status]++
	}
	_, chatting := e.chats.Lookup(targetID)
	e.reply(ctx, adminID, userProfile(identity, counts, chatting))
	return nil
}

func (e *Engine) report(ctx context.Context, reporterID int64, in intent.Report) error {
	listing, err := e.listings.Get(in.ListingID)
	if err != nil {
		return apperrors.NewMissing(err, map[string]any{"listing_id": in.ListingID})
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "no reason given"
	}
	publish(ctx, e.dispatcher, e.logger, events.New(events.EventListingReported, reporterID, e.now(),
		events.ListingReportedPayload{ListingID: listing.ID, ReporterID: reporterID, Reason: reason}))
	e.reply(ctx, reporterID, gateway.Text(textReportThanks))
	return nil
}

func (e *Engine) runBroadcast(job domain.BroadcastJob) {
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		summary := e.broadcasts.Deliver(e.baseCtx, job)
		// The summary still goes out after the base context is cancelled.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(e.baseCtx), broadcastReportTimeout)
		defer cancel()
		e.reply(ctx, job.SubmittedBy, broadcastReport(job, summary))
	}()
}

// Wait blocks until background broadcasts have finished.
func (e *Engine) Wait() {
	e.background.Wait()
}

// WaitTimeout waits for background broadcasts for at most d and reports
// whether they all finished.
func (e *Engine) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		e.background.Wait()
		close(done)
	}()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Maintenance reports whether non-admin traffic is being turned away.
func (e *Engine) Maintenance() bool {
	return e.maintenance.Load()
}

// SetMaintenance toggles maintenance mode.
func (e *Engine) SetMaintenance(ctx context.Context, adminID int64, enabled bool) {
	e.maintenance.Store(enabled)
	e.logger.Info("maintenance toggled", zap.Bool("enabled", enabled), zap.Int64("admin_id", adminID))
	recordAudit(ctx, e.audit, e.logger, domain.AuditEntry{
		ActorID:   adminID,
		Action:    domain.AuditMaintenance,
		SubjectID: adminID,
		Details:   map[string]any{"enabled": enabled},
		CreatedAt: e.now(),
	})
}

// Stats summarises the marketplace for admins.
func (e *Engine) Stats() Stats {
	return Stats{
		Identities:        e.identities.Count(),
		Listings:          e.listings.CountByStatus(),
		ActiveChats:       e.chats.Count(),
		OpenConversations: e.conversations.Count(),
		Maintenance:       e.maintenance.Load(),
		Metrics:           e.metrics.Snapshot(),
	}
}

// ExpireStale cancels idle listing dialogues and closes idle chats. A zero
// TTL disables the matching expiry.
func (e *Engine) ExpireStale(ctx context.Context) (conversations, chats int) {
	now := e.now()
	if ttl := e.cfg.SessionTTL; ttl > 0 {
		cutoff := now.Add(-ttl)
		for _, id := range e.conversations.IdleSince(cutoff) {
			unlock := e.locks.Lock(id)
			expired := e.conversations.Expire(id, cutoff)
			unlock()
			if expired {
				conversations++
				e.reply(ctx, id, gateway.Text(textExpiredDraft))
			}
		}
	}
	if ttl := e.cfg.ChatTTL; ttl > 0 {
		chats = e.chats.ExpireIdle(ctx, now.Add(-ttl))
	}
	if conversations > 0 || chats > 0 {
		e.logger.Info("expired idle sessions", zap.Int("conversations", conversations), zap.Int("chats", chats))
	}
	return conversations, chats
}

func (e *Engine) reply(ctx context.Context, recipient int64, content gateway.Content) {
	if err := e.gateway.Send(ctx, recipient, content); err != nil {
		e.logger.Warn("reply failed", zap.Int64("identity_id", recipient), zap.Error(err))
	}
}

func formatStats(s Stats) string {
	var handled int64
	for _, n := range s.Metrics.Intents {
		handled += n
	}
	return fmt.Sprintf("Users: %d\nPending: %d\nApproved: %d\nRejected: %d\nActive chats: %d\n"+
		"Open drafts: %d\nEvents handled: %d\nMaintenance: %t",
		s.Identities,
		s.Listings[domain.ListingPending],
		s.Listings[domain.ListingApproved],
		s.Listings[domain.ListingRejected],
		s.ActiveChats,
		s.OpenConversations,
		handled,
		s.Maintenance)
}
