package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmanacadamy/Ver/internal/api/dto"
	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/intent"
)

func textUpdate(text string) dto.Update {
	return dto.Update{
		UpdateID: 1,
		Message: &dto.Message{
			From: &dto.User{ID: 42, FirstName: "Abebe", Username: "abebe"},
			Chat: dto.Chat{ID: 42, Type: "private"},
			Text: text,
		},
	}
}

func TestClassifyCommands(t *testing.T) {
	tests := []struct {
		text string
		want intent.Intent
	}{
		{"/start", intent.Start{}},
		{"/start contact_5", intent.Start{Payload: "contact_5"}},
		{"/sell", intent.BeginListing{}},
		{"Sell Item", intent.BeginListing{}},
		{"/browse@jumarket_bot", intent.Browse{}},
		{"/myproducts", intent.MyListings{}},
		{"/cancel", intent.Cancel{}},
		{"/skip", intent.TextReceived{Text: "/skip", Skip: true, Command: true}},
		{"/endchat", intent.EndChat{}},
		{"/approve 7", intent.Moderate{ListingID: 7, Decision: domain.DecisionApprove}},
		{"/reject #7", intent.Moderate{ListingID: 7, Decision: domain.DecisionReject}},
		{"/broadcast hello all", intent.Broadcast{Body: "hello all", Scope: domain.ScopeAll}},
		{"/notifyadmins heads up", intent.Broadcast{Body: "heads up", Scope: domain.ScopeAdmins}},
		{"/ban 99", intent.Ban{Target: 99}},
		{"/maintenance on", intent.Maintenance{Enabled: true}},
		{"/viewchats", intent.ViewChats{}},
		{"/viewchats 5", intent.ViewChats{Target: 5}},
		{"/endchatfor 5", intent.ForceEndChat{Target: 5}},
		{"/msg 5 see you at the gate", intent.DirectMessage{Target: 5, Body: "see you at the gate"}},
		{"/report 3 looks fake", intent.Report{ListingID: 3, Reason: "looks fake"}},
		{"/users", intent.ListUsers{}},
		{"/users 3", intent.ListUsers{Page: 2}},
		{"/user 17", intent.ViewUser{Target: 17}},
		{"/support my listing is stuck", intent.ContactAdmins{Body: "my listing is stuck"}},
		{"/whatever", intent.TextReceived{Text: "/whatever", Command: true}},
		{"Calculus Textbook", intent.TextReceived{Text: "Calculus Textbook"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ev, ok := Classify(textUpdate(tt.text))
			require.True(t, ok)
			assert.Equal(t, tt.want, ev.Intent)
			assert.Equal(t, int64(42), ev.Actor.ID)
			assert.True(t, ev.FromMessage())
		})
	}
}

func TestClassifyMalformedArguments(t *testing.T) {
	for _, text := range []string{"/approve", "/approve abc", "/ban -3", "/maintenance maybe", "/msg 5", "/users 0", "/user", "/support"} {
		ev, ok := Classify(textUpdate(text))
		require.True(t, ok)
		assert.IsType(t, intent.Malformed{}, ev.Intent, text)
	}
}

func TestClassifyPhotoPicksLargest(t *testing.T) {
	u := dto.Update{Message: &dto.Message{
		From: &dto.User{ID: 1},
		Chat: dto.Chat{ID: 1, Type: "private"},
		Photo: []dto.PhotoSize{
			{FileID: "small", Width: 90, Height: 90},
			{FileID: "large", Width: 1280, Height: 960},
			{FileID: "medium", Width: 320, Height: 240},
		},
		Caption: "front cover",
	}}
	ev, ok := Classify(u)
	require.True(t, ok)
	assert.Equal(t, intent.MediaReceived{Ref: "large", Caption: "front cover"}, ev.Intent)
	assert.Equal(t, "large", ev.MediaRef)
}

func TestClassifyCallback(t *testing.T) {
	u := dto.Update{CallbackQuery: &dto.CallbackQuery{
		ID:   "cb-1",
		From: dto.User{ID: 8},
		Data: intent.ModerateData(4, domain.DecisionApprove),
	}}
	ev, ok := Classify(u)
	require.True(t, ok)
	assert.Equal(t, "cb-1", ev.CallbackID)
	assert.False(t, ev.FromMessage())
	assert.Equal(t, intent.Moderate{ListingID: 4, Decision: domain.DecisionApprove}, ev.Intent)

	u.CallbackQuery.Data = "bogus"
	ev, ok = Classify(u)
	require.True(t, ok)
	assert.IsType(t, intent.Malformed{}, ev.Intent)
}

func TestClassifyIgnoresNonPrivateAndBots(t *testing.T) {
	u := textUpdate("hello")
	u.Message.Chat.Type = "group"
	_, ok := Classify(u)
	assert.False(t, ok)

	u = textUpdate("hello")
	u.Message.From.IsBot = true
	_, ok = Classify(u)
	assert.False(t, ok)

	_, ok = Classify(dto.Update{UpdateID: 3})
	assert.False(t, ok)
}
