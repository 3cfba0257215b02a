package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/events"
	"github.com/freshmanacadamy/Ver/internal/gateway"
	"github.com/freshmanacadamy/Ver/internal/repository"
)

// NotificationService tells admins about new listings, chats and reports.
type NotificationService struct {
	dispatcher events.Dispatcher
	gateway    gateway.Gateway
	admins     Admins
	identities repository.IdentityRepository
	listings   repository.ListingRepository
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, gw gateway.Gateway, admins Admins,
	identities repository.IdentityRepository, listings repository.ListingRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		gateway:    gw,
		admins:     admins,
		identities: identities,
		listings:   listings,
		logger:     loggerOrNop(logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventListingCreated, n.handleListingCreated)
	n.dispatcher.Subscribe(events.EventChatOpened, n.handleChatOpened)
	n.dispatcher.Subscribe(events.EventListingReported, n.handleListingReported)
	n.dispatcher.Subscribe(events.EventListingDecided, n.handleListingDecided)
	n.dispatcher.Subscribe(events.EventChatClosed, n.handleChatClosed)
	n.dispatcher.Subscribe(events.EventSupportRequest, n.handleSupportRequest)
}

func (n *NotificationService) handleListingCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ListingCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	owner, _ := n.identities.Get(payload.Listing.OwnerID)
	n.logger.Info("ListingCreated", zap.Int64("listing_id", payload.Listing.ID), zap.Int64("identity_id", owner.ID))
	n.toAdmins(ctx, event, reviewCard(payload.Listing, owner))
	return nil
}

func (n *NotificationService) handleChatOpened(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ChatOpenedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	initiator, _ := n.identities.Get(payload.InitiatorID)
	counterpart, _ := n.identities.Get(payload.CounterpartID)
	listing := domain.Listing{ID: payload.ListingID, Title: payload.ListingTitle}
	n.toAdmins(ctx, event, adminChatNotice(initiator, counterpart, listing))
	return nil
}

func (n *NotificationService) handleListingReported(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ListingReportedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	reporter, _ := n.identities.Get(payload.ReporterID)
	listing, err := n.listings.Get(payload.ListingID)
	if err != nil {
		return err
	}
	n.toAdmins(ctx, event, adminReportNotice(reporter, listing, payload.Reason))
	return nil
}

func (n *NotificationService) handleSupportRequest(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SupportRequestPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	sender, _ := n.identities.Get(payload.IdentityID)
	n.toAdmins(ctx, event, adminSupportNotice(sender, payload.Body))
	return nil
}

func (n *NotificationService) handleListingDecided(_ context.Context, event events.Event) error {
	n.logger.Debug("ListingDecided", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleChatClosed(_ context.Context, event events.Event) error {
	n.logger.Debug("ChatClosed", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	return nil
}

// toAdmins sends content to every admin; one unreachable admin does not
// stop the rest.
func (n *NotificationService) toAdmins(ctx context.Context, event events.Event, content gateway.Content) {
	for _, adminID := range n.admins.IDs() {
		if err := n.gateway.Send(ctx, adminID, content); err != nil {
			n.logger.Warn("admin notification failed",
				zap.String("event_type", string(event.Type)),
				zap.Int64("identity_id", adminID),
				zap.Error(err))
		}
	}
}
