// Package intent defines the typed actions the workflow engine accepts.
// Raw chat input is classified into exactly one Intent by the router.
package intent

import "github.com/freshmanacadamy/Ver/internal/domain"

// Kind names an intent for logging and metrics.
type Kind string

const (
	KindStart          Kind = "start"
	KindHelp           Kind = "help"
	KindBeginListing   Kind = "begin_listing"
	KindMedia          Kind = "media_received"
	KindText           Kind = "text_received"
	KindCategoryChosen Kind = "category_chosen"
	KindCancel         Kind = "cancel"
	KindOpenChat       Kind = "open_chat"
	KindEndChat        Kind = "end_chat"
	KindModerate       Kind = "moderate"
	KindBroadcast      Kind = "broadcast"
	KindMyListings     Kind = "my_listings"
	KindBrowse         Kind = "browse"
	KindShowListing    Kind = "show_listing"
	KindPendingQueue   Kind = "pending_queue"
	KindBan            Kind = "ban"
	KindUnban          Kind = "unban"
	KindMaintenance    Kind = "maintenance"
	KindStats          Kind = "stats"
	KindViewChats      Kind = "view_chats"
	KindForceEndChat   Kind = "force_end_chat"
	KindReport         Kind = "report"
	KindDirectMessage  Kind = "direct_message"
	KindListUsers      Kind = "list_users"
	KindViewUser       Kind = "view_user"
	KindContactAdmins  Kind = "contact_admins"
	KindMalformed      Kind = "malformed"
)

// Intent is implemented by every action type below.
type Intent interface {
	Kind() Kind
}

// Start is the /start command with an optional deep-link payload.
type Start struct{ Payload string }

type Help struct{}

type BeginListing struct{}

// MediaReceived carries an opaque gateway media reference.
type MediaReceived struct {
	Ref     string
	Caption string
}

// TextReceived is free text. Skip is set for the literal skip command.
type TextReceived struct {
	Text string
	Skip bool
	// Command is set when the text was a recognised command word.
	Command bool
}

type CategoryChosen struct{ Category domain.Category }

type Cancel struct{}

// OpenChat asks for a pairing on ListingID. A zero Counterpart means the
// listing owner.
type OpenChat struct {
	Counterpart int64
	ListingID   int64
}

type EndChat struct{}

type Moderate struct {
	ListingID int64
	Decision  domain.Decision
}

type Broadcast struct {
	Body  string
	Scope domain.BroadcastScope
}

type MyListings struct{}

type Browse struct{}

type ShowListing struct{ ListingID int64 }

type PendingQueue struct{}

type Ban struct{ Target int64 }

type Unban struct{ Target int64 }

type Maintenance struct{ Enabled bool }

type Stats struct{}

// ViewChats lists active pairings, or one pairing when Target is set.
type ViewChats struct{ Target int64 }

type ForceEndChat struct{ Target int64 }

type Report struct {
	ListingID int64
	Reason    string
}

type DirectMessage struct {
	Target int64
	Body   string
}

// ListUsers pages through known identities. Page is zero-based.
type ListUsers struct{ Page int }

type ViewUser struct{ Target int64 }

// ContactAdmins forwards a support request to every admin.
type ContactAdmins struct{ Body string }

// Malformed is a recognised command with unusable arguments.
type Malformed struct {
	Command string
	Usage   string
}

func (Start) Kind() Kind          { return KindStart }
func (Help) Kind() Kind           { return KindHelp }
func (BeginListing) Kind() Kind   { return KindBeginListing }
func (MediaReceived) Kind() Kind  { return KindMedia }
func (TextReceived) Kind() Kind   { return KindText }
func (CategoryChosen) Kind() Kind { return KindCategoryChosen }
func (Cancel) Kind() Kind         { return KindCancel }
func (OpenChat) Kind() Kind       { return KindOpenChat }
func (EndChat) Kind() Kind        { return KindEndChat }
func (Moderate) Kind() Kind       { return KindModerate }
func (Broadcast) Kind() Kind      { return KindBroadcast }
func (MyListings) Kind() Kind     { return KindMyListings }
func (Browse) Kind() Kind         { return KindBrowse }
func (ShowListing) Kind() Kind    { return KindShowListing }
func (PendingQueue) Kind() Kind   { return KindPendingQueue }
func (Ban) Kind() Kind            { return KindBan }
func (Unban) Kind() Kind          { return KindUnban }
func (Maintenance) Kind() Kind    { return KindMaintenance }
func (Stats) Kind() Kind          { return KindStats }
func (ViewChats) Kind() Kind      { return KindViewChats }
func (ForceEndChat) Kind() Kind   { return KindForceEndChat }
func (Report) Kind() Kind         { return KindReport }
func (DirectMessage) Kind() Kind  { return KindDirectMessage }
func (ListUsers) Kind() Kind      { return KindListUsers }
func (ViewUser) Kind() Kind       { return KindViewUser }
func (ContactAdmins) Kind() Kind  { return KindContactAdmins }
func (Malformed) Kind() Kind      { return KindMalformed }

// AdminOnly reports whether only allow-listed identities may run it.
func AdminOnly(in Intent) bool {
	switch in.(type) {
	case Moderate, Broadcast, PendingQueue, Ban, Unban, Maintenance, Stats,
		ViewChats, ForceEndChat, DirectMessage, ListUsers, ViewUser:
		return true
	default:
		return false
	}
}
