package intent

import (
	"errors"
	"strconv"
	"strings"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

// ErrUnknownCallback is returned for button payloads this bot never issued.
var ErrUnknownCallback = errors.New("unknown callback data")

const (
	cbCategory = "cat"
	cbApprove  = "approve"
	cbReject   = "reject"
	cbContact  = "contact"
	cbCancel   = "cancel"
	cbEndChat  = "endchat"
	cbSell     = "sell"
	cbSkip     = "skip"
	cbBrowse   = "browse"
	cbUsers    = "users"
	cbUser     = "user"
)

// Callback payloads attached to inline buttons.
func CategoryData(c domain.Category) string { return cbCategory + ":" + string(c) }
func ModerateData(listingID int64, d domain.Decision) string {
	if d == domain.DecisionApprove {
		return cbApprove + ":" + strconv.FormatInt(listingID, 10)
	}
	return cbReject + ":" + strconv.FormatInt(listingID, 10)
}
func ContactData(listingID int64) string { return cbContact + ":" + strconv.FormatInt(listingID, 10) }
func UsersPageData(page int) string      { return cbUsers + ":" + strconv.Itoa(page) }
func ViewUserData(identityID int64) string {
	return cbUser + ":" + strconv.FormatInt(identityID, 10)
}

const (
	CancelData  = cbCancel
	EndChatData = cbEndChat
	SellData    = cbSell
	SkipData    = cbSkip
	BrowseData  = cbBrowse
)

// ParseCallback decodes a button payload into its Intent.
func ParseCallback(data string) (Intent, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(data), ":")
	switch name {
	case cbCategory:
		c, err := domain.ParseCategory(arg)
		if err != nil {
			return nil, err
		}
		return CategoryChosen{Category: c}, nil
	case cbApprove, cbReject:
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		d := domain.DecisionApprove
		if name == cbReject {
			d = domain.DecisionReject
		}
		return Moderate{ListingID: id, Decision: d}, nil
	case cbContact:
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		return OpenChat{ListingID: id}, nil
	case cbCancel:
		return Cancel{}, nil
	case cbEndChat:
		return EndChat{}, nil
	case cbSell:
		return BeginListing{}, nil
	case cbSkip:
		return TextReceived{Skip: true}, nil
	case cbBrowse:
		return Browse{}, nil
	case cbUsers:
		page, err := strconv.Atoi(arg)
		if err != nil || page < 0 {
			return nil, ErrUnknownCallback
		}
		return ListUsers{Page: page}, nil
	case cbUser:
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		return ViewUser{Target: id}, nil
	default:
		return nil, ErrUnknownCallback
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrUnknownCallback
	}
	return id, nil
}
