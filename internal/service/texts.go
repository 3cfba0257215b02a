package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/gateway"
	"github.com/freshmanacadamy/Ver/internal/intent"
	apperrors "github.com/freshmanacadamy/Ver/pkg/util/errorutil"
)

const (
	textWelcome = "Welcome to the campus marketplace!\n\n" +
		"Sell something with /sell, browse approved items with /browse " +
		"and see your own items with /myproducts."
	textHelp = "How it works:\n" +
		"1. /sell and send a photo, title, price, description and category.\n" +
		"2. An admin reviews the item before it is posted to the channel.\n" +
		"3. Buyers press \"Contact Seller\" to open a private chat through the bot.\n\n" +
		"Commands: /sell /browse /myproducts /cancel /endchat /report <id> <reason> /support <message>"
	textAdminHelp = "\n\nAdmin: /pending /approve <id> /reject <id> /broadcast <text> " +
		"/notifyadmins <text> /testbroadcast <text> /ban <id> /unban <id> /maintenance on|off " +
		"/stats /viewchats [id] /endchatfor <id> /msg <id> <text> /users [page] /user <id>"
	textAskImage       = "Step 1/5: send a photo of the item."
	textAskTitle       = "Step 2/5: what is the title of the item?"
	textAskPrice       = "Step 3/5: what is the price in birr? Numbers only, e.g. 1500."
	textAskDescription = "Step 4/5: add a short description, or press Skip."
	textAskCategory    = "Step 5/5: choose a category."
	textCancelled      = "Listing cancelled."
	textExpiredDraft   = "Your unfinished listing expired. Start again with /sell."
	textBanned         = "You have been banned from the marketplace."
	textMaintenance    = "The marketplace is under maintenance. Please try again later."
	textDelivered      = "Delivered."
	textChatEnded      = "The chat has ended."
	textChatExpired    = "The chat was closed after a period of inactivity."
	textChatForceEnded = "An admin has closed this chat."
	textNoItems        = "No items available right now."
	textNoOwnItems     = "You have not listed anything yet. Start with /sell."
	textNoPending      = "No listings are waiting for review."
	textReportThanks   = "Thanks, the admins have been notified."
	textUseMenu        = "Use /sell to list an item or /help to see what the bot can do."
	textUnknownCommand = "Unknown command. See /help."
	textSupportSent    = "Your message was sent to the admins. They will reply here."
	textNoUsers        = "No users on that page."
)

func promptFor(state domain.SessionState) gateway.Content {
	switch state {
	case domain.StateAwaitingImage:
		return gateway.Text(textAskImage).WithActions(cancelRow())
	case domain.StateAwaitingTitle:
		return gateway.Text(textAskTitle).WithActions(cancelRow())
	case domain.StateAwaitingPrice:
		return gateway.Text(textAskPrice).WithActions(cancelRow())
	case domain.StateAwaitingDescription:
		return gateway.Text(textAskDescription).WithActions(
			gateway.Row(gateway.Action{Label: "Skip", Data: intent.SkipData}),
			cancelRow(),
		)
	case domain.StateAwaitingCategory:
		return categoryPrompt()
	default:
		return gateway.Text(textUseMenu)
	}
}

func categoryPrompt() gateway.Content {
	rows := make([][]gateway.Action, 0, len(domain.Categories)/2+2)
	for i := 0; i < len(domain.Categories); i += 2 {
		row := []gateway.Action{{Label: string(domain.Categories[i]), Data: intent.CategoryData(domain.Categories[i])}}
		if i+1 < len(domain.Categories) {
			next := domain.Categories[i+1]
			row = append(row, gateway.Action{Label: string(next), Data: intent.CategoryData(next)})
		}
		rows = append(rows, row)
	}
	rows = append(rows, cancelRow())
	return gateway.Text(textAskCategory).WithActions(rows...)
}

func cancelRow() []gateway.Action {
	return gateway.Row(gateway.Action{Label: "Cancel", Data: intent.CancelData})
}

func endChatRow() []gateway.Action {
	return gateway.Row(gateway.Action{Label: "End chat", Data: intent.EndChatData})
}

func formatPrice(price int64) string {
	raw := strconv.FormatInt(price, 10)
	var b strings.Builder
	for i, r := range raw {
		if i > 0 && (len(raw)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String() + " birr"
}

func listingSummary(l domain.Listing) string {
	return fmt.Sprintf("#%d %s\nPrice: %s\nCategory: %s\n%s",
		l.ID, l.Title, formatPrice(l.Price), l.Category, l.Description)
}

func listingSubmitted(l domain.Listing) gateway.Content {
	return gateway.Text(fmt.Sprintf("Listing #%d submitted. An admin will review it shortly.", l.ID))
}

// listingCard is the public card with a contact button.
func listingCard(l domain.Listing) gateway.Content {
	return gateway.Content{
		Text:     listingSummary(l),
		MediaRef: l.MediaRef,
		Actions:  [][]gateway.Action{gateway.Row(gateway.Action{Label: "Contact Seller", Data: intent.ContactData(l.ID)})},
	}
}

func channelAnnouncement(l domain.Listing) gateway.Content {
	card := listingCard(l)
	card.Text = "New item for sale!\n\n" + card.Text
	return card
}

func reviewCard(l domain.Listing, owner domain.Identity) gateway.Content {
	return gateway.Content{
		Text:     fmt.Sprintf("Listing awaiting review\nSeller: %s (%d)\n\n%s", owner.Mention(), owner.ID, listingSummary(l)),
		MediaRef: l.MediaRef,
		Actions: [][]gateway.Action{gateway.Row(
			gateway.Action{Label: "Approve", Data: intent.ModerateData(l.ID, domain.DecisionApprove)},
			gateway.Action{Label: "Reject", Data: intent.ModerateData(l.ID, domain.DecisionReject)},
		)},
	}
}

func ownListingLine(l domain.Listing) string {
	return fmt.Sprintf("#%d %s, %s [%s]", l.ID, l.Title, formatPrice(l.Price), l.Status)
}

func decisionNotice(l domain.Listing) gateway.Content {
	if l.Status == domain.ListingApproved {
		return gateway.Text(fmt.Sprintf("Your listing #%d \"%s\" was approved and is now in the channel.", l.ID, l.Title))
	}
	return gateway.Text(fmt.Sprintf("Your listing #%d \"%s\" was not approved. "+
		"Please check the photo, title and price and submit it again with /sell.", l.ID, l.Title))
}

func decisionAck(l domain.Listing) gateway.Content {
	return gateway.Text(fmt.Sprintf("Listing #%d is now %s.", l.ID, l.Status))
}

func chatOpenedNotice(l domain.Listing, partner domain.Identity, initiator bool) gateway.Content {
	var text string
	if initiator {
		text = fmt.Sprintf("You are now chatting with the seller of #%d \"%s\". "+
			"Messages you send here are forwarded. Use /endchat to finish.", l.ID, l.Title)
	} else {
		text = fmt.Sprintf("%s wants to talk about your listing #%d \"%s\". "+
			"Reply here to answer. Use /endchat to finish.", partner.Mention(), l.ID, l.Title)
	}
	return gateway.Text(text).WithActions(endChatRow())
}

func adminChatNotice(initiator, counterpart domain.Identity, l domain.Listing) gateway.Content {
	return gateway.Text(fmt.Sprintf("New chat: %s (%d) with %s (%d) about #%d \"%s\".",
		initiator.Mention(), initiator.ID, counterpart.Mention(), counterpart.ID, l.ID, l.Title))
}

func adminReportNotice(reporter domain.Identity, l domain.Listing, reason string) gateway.Content {
	return gateway.Text(fmt.Sprintf("Report from %s (%d) on #%d \"%s\": %s",
		reporter.Mention(), reporter.ID, l.ID, l.Title, reason))
}

func adminSupportNotice(sender domain.Identity, body string) gateway.Content {
	return gateway.Text(fmt.Sprintf("Support request from %s (%d):\n\n%s\n\nReply with /msg %d <text>",
		sender.Mention(), sender.ID, body, sender.ID))
}

func userLine(i domain.Identity) string {
	line := fmt.Sprintf("%d %s", i.ID, i.Mention())
	if i.Banned {
		line += " [banned]"
	}
	return line
}

// usersPage lists one page with a button per user and paging controls.
func usersPage(users []domain.Identity, page, pageSize, total int) gateway.Content {
	lines := []string{fmt.Sprintf("Users %d-%d of %d:", page*pageSize+1, page*pageSize+len(users), total)}
	rows := make([][]gateway.Action, 0, len(users)+1)
	for _, u := range users {
		lines = append(lines, userLine(u))
		rows = append(rows, gateway.Row(gateway.Action{Label: "View " + strconv.FormatInt(u.ID, 10), Data: intent.ViewUserData(u.ID)}))
	}
	var nav []gateway.Action
	if page > 0 {
		nav = append(nav, gateway.Action{Label: "Previous", Data: intent.UsersPageData(page - 1)})
	}
	if (page+1)*pageSize < total {
		nav = append(nav, gateway.Action{Label: "Next", Data: intent.UsersPageData(page + 1)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return gateway.Text(strings.Join(lines, "\n")).WithActions(rows...)
}

// userProfile is the admin view of one identity.
func userProfile(i domain.Identity, listings map[domain.ListingStatus]int, chatting bool) gateway.Content {
	status := "active"
	if i.Banned {
		status = "banned"
	}
	chat := "no"
	if chatting {
		chat = "yes"
	}
	return gateway.Text(fmt.Sprintf("User %d\nName: %s\nHandle: %s\nJoined: %s\nStatus: %s\n"+
		"Listings: %d approved, %d pending, %d rejected\nIn chat: %s",
		i.ID, i.Name, handleOrDash(i.Handle), i.JoinedAt.Format("2006-01-02"), status,
		listings[domain.ListingApproved], listings[domain.ListingPending], listings[domain.ListingRejected], chat))
}

func handleOrDash(h string) string {
	if h == "" {
		return "-"
	}
	return "@" + h
}

func broadcastContent(scope domain.BroadcastScope, body string) gateway.Content {
	switch scope {
	case domain.ScopeAdmins:
		return gateway.Text("Admin notice:\n\n" + body)
	case domain.ScopeTest:
		return gateway.Text("Test broadcast:\n\n" + body)
	default:
		return gateway.Text("Announcement:\n\n" + body)
	}
}

func broadcastQueued(job domain.BroadcastJob) gateway.Content {
	return gateway.Text(fmt.Sprintf("Broadcast %s queued for %d recipients.", shortID(job.ID), len(job.Recipients)))
}

func broadcastReport(job domain.BroadcastJob, s domain.BroadcastSummary) gateway.Content {
	return gateway.Text(fmt.Sprintf("Broadcast %s finished: %d attempted, %d delivered, %d failed.",
		shortID(job.ID), s.Attempted, s.Delivered, s.Failed))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func chatLine(m domain.ChatMessage) string {
	body := m.Text
	if m.MediaRef != "" {
		body = "[photo] " + body
	}
	return fmt.Sprintf("%s %s (%d): %s", m.SentAt.Format("15:04"), m.Role, m.SenderID, body)
}

// errorReply turns an engine error into what the actor is told.
func errorReply(err error) gateway.Content {
	switch {
	case errors.Is(err, domain.ErrIdentityBanned):
		return gateway.Text(textBanned)
	case errors.Is(err, domain.ErrMaintenance):
		return gateway.Text(textMaintenance)
	}
	de := apperrors.ToDomainError(err)
	switch de.Code {
	case apperrors.CodeValidation, apperrors.CodeConflict, apperrors.CodeNotFound:
		return gateway.Text(capitalize(de.Message) + ".")
	case apperrors.CodeForbidden:
		return gateway.Text("You are not allowed to do that.")
	case apperrors.CodeDeliveryFailure:
		return gateway.Text("The other person could not be reached. They may need to start the bot first.")
	default:
		return gateway.Text("Something went wrong. Please try again.")
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
