// Package router classifies inbound chat updates into typed intents.
package router

import (
	"strconv"
	"strings"

	"github.com/freshmanacadamy/Ver/internal/api/dto"
	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/intent"
)

// Reply-keyboard labels accepted as command aliases.
const (
	LabelSell       = "Sell Item"
	LabelBrowse     = "Browse Items"
	LabelMyListings = "My Listings"
	LabelHelp       = "Help"
)

// Event is one classified update.
type Event struct {
	UpdateID   int64
	CallbackID string
	Actor      domain.Profile
	Intent     intent.Intent
	// Text and MediaRef hold the raw message so it can be relayed verbatim.
	Text     string
	MediaRef string
}

// FromMessage reports whether the event came from a typed or sent message
// rather than a button press.
func (e Event) FromMessage() bool {
	return e.CallbackID == ""
}

// Classify maps an update to an Event. ok is false for updates the bot
// does not handle (bots, channel posts, edits).
func Classify(u dto.Update) (Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		return classifyCallback(u.UpdateID, u.CallbackQuery)
	case u.Message != nil:
		return classifyMessage(u.UpdateID, u.Message)
	default:
		return Event{}, false
	}
}

func classifyCallback(updateID int64, q *dto.CallbackQuery) (Event, bool) {
	if q.From.IsBot {
		return Event{}, false
	}
	ev := Event{
		UpdateID:   updateID,
		CallbackID: q.ID,
		Actor:      profileOf(q.From),
	}
	in, err := intent.ParseCallback(q.Data)
	if err != nil {
		in = intent.Malformed{Command: "button", Usage: "This button is no longer valid."}
	}
	ev.Intent = in
	return ev, true
}

func classifyMessage(updateID int64, m *dto.Message) (Event, bool) {
	if m.From == nil || m.From.IsBot || m.Chat.Type != "" && m.Chat.Type != "private" {
		return Event{}, false
	}
	ev := Event{UpdateID: updateID, Actor: profileOf(*m.From)}

	if len(m.Photo) > 0 {
		ev.MediaRef = largestPhoto(m.Photo)
		ev.Text = m.Caption
		ev.Intent = intent.MediaReceived{Ref: ev.MediaRef, Caption: m.Caption}
		return ev, true
	}

	text := strings.TrimSpace(m.Text)
	if text == "" {
		return Event{}, false
	}
	ev.Text = m.Text
	ev.Intent = classifyText(text)
	return ev, true
}

func classifyText(text string) intent.Intent {
	switch strings.ToLower(text) {
	case strings.ToLower(LabelSell):
		return intent.BeginListing{}
	case strings.ToLower(LabelBrowse):
		return intent.Browse{}
	case strings.ToLower(LabelMyListings):
		return intent.MyListings{}
	case strings.ToLower(LabelHelp):
		return intent.Help{}
	}
	if !strings.HasPrefix(text, "/") {
		return intent.TextReceived{Text: text}
	}

	cmd, args := splitCommand(text)
	switch cmd {
	case "start":
		return intent.Start{Payload: args}
	case "help":
		return intent.Help{}
	case "sell":
		return intent.BeginListing{}
	case "browse":
		return intent.Browse{}
	case "myproducts", "mylistings":
		return intent.MyListings{}
	case "cancel":
		return intent.Cancel{}
	case "skip":
		return intent.TextReceived{Text: text, Skip: true, Command: true}
	case "endchat":
		return intent.EndChat{}
	case "product":
		return withID(cmd, args, "/product <listing id>", func(id int64, _ string) intent.Intent {
			return intent.ShowListing{ListingID: id}
		})
	case "contact":
		return withID(cmd, args, "/contact <listing id>", func(id int64, _ string) intent.Intent {
			return intent.OpenChat{ListingID: id}
		})
	case "report":
		return withID(cmd, args, "/report <listing id> <reason>", func(id int64, rest string) intent.Intent {
			return intent.Report{ListingID: id, Reason: rest}
		})
	case "pending":
		return intent.PendingQueue{}
	case "approve", "reject":
		decision := domain.DecisionApprove
		if cmd == "reject" {
			decision = domain.DecisionReject
		}
		return withID(cmd, args, "/"+cmd+" <listing id>", func(id int64, _ string) intent.Intent {
			return intent.Moderate{ListingID: id, Decision: decision}
		})
	case "broadcast":
		return intent.Broadcast{Body: args, Scope: domain.ScopeAll}
	case "notifyadmins":
		return intent.Broadcast{Body: args, Scope: domain.ScopeAdmins}
	case "testbroadcast":
		return intent.Broadcast{Body: args, Scope: domain.ScopeTest}
	case "ban":
		return withID(cmd, args, "/ban <user id>", func(id int64, _ string) intent.Intent {
			return intent.Ban{Target: id}
		})
	case "unban":
		return withID(cmd, args, "/unban <user id>", func(id int64, _ string) intent.Intent {
			return intent.Unban{Target: id}
		})
	case "maintenance":
		switch strings.ToLower(args) {
		case "on":
			return intent.Maintenance{Enabled: true}
		case "off":
			return intent.Maintenance{Enabled: false}
		default:
			return intent.Malformed{Command: cmd, Usage: "/maintenance on|off"}
		}
	case "stats":
		return intent.Stats{}
	case "viewchats", "viewchat":
		if args == "" {
			return intent.ViewChats{}
		}
		return withID(cmd, args, "/viewchats [user id]", func(id int64, _ string) intent.Intent {
			return intent.ViewChats{Target: id}
		})
	case "endchatfor":
		return withID(cmd, args, "/endchatfor <user id>", func(id int64, _ string) intent.Intent {
			return intent.ForceEndChat{Target: id}
		})
	case "msg":
		return withID(cmd, args, "/msg <user id> <text>", func(id int64, rest string) intent.Intent {
			if rest == "" {
				return intent.Malformed{Command: cmd, Usage: "/msg <user id> <text>"}
			}
			return intent.DirectMessage{Target: id, Body: rest}
		})
	case "users":
		if args == "" {
			return intent.ListUsers{}
		}
		return withID(cmd, args, "/users [page]", func(page int64, _ string) intent.Intent {
			return intent.ListUsers{Page: int(page) - 1}
		})
	case "user":
		return withID(cmd, args, "/user <user id>", func(id int64, _ string) intent.Intent {
			return intent.ViewUser{Target: id}
		})
	case "support", "contactadmin":
		if args == "" {
			return intent.Malformed{Command: cmd, Usage: "/support <message>"}
		}
		return intent.ContactAdmins{Body: args}
	default:
		return intent.TextReceived{Text: text, Command: true}
	}
}

// splitCommand returns the lowercased command name without the slash or
// @botname suffix, and the trimmed remainder.
func splitCommand(text string) (string, string) {
	head, rest, _ := strings.Cut(text, " ")
	head = strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head), strings.TrimSpace(rest)
}

func withID(cmd, args, usage string, build func(id int64, rest string) intent.Intent) intent.Intent {
	first, rest, _ := strings.Cut(args, " ")
	id, err := strconv.ParseInt(strings.TrimPrefix(first, "#"), 10, 64)
	if err != nil || id <= 0 {
		return intent.Malformed{Command: cmd, Usage: usage}
	}
	return build(id, strings.TrimSpace(rest))
}

func largestPhoto(sizes []dto.PhotoSize) string {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best.FileID
}

func profileOf(u dto.User) domain.Profile {
	return domain.Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}
