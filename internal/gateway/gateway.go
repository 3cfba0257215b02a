// Package gateway delivers outbound messages to the chat platform.
package gateway

import "context"

// Action is one inline button.
type Action struct {
	Label string
	Data  string
}

// Content is an outbound message. MediaRef, when set, is sent as a photo
// with Text as its caption.
type Content struct {
	Text     string
	MediaRef string
	Actions  [][]Action
}

// Text is a plain text message.
func Text(body string) Content {
	return Content{Text: body}
}

// WithActions returns a copy of c carrying the given button rows.
func (c Content) WithActions(rows ...[]Action) Content {
	c.Actions = rows
	return c
}

// Row groups buttons on one line.
func Row(actions ...Action) []Action {
	return actions
}

// Gateway is the outbound side of the chat platform. Every call may fail
// per recipient; callers decide whether a failure matters.
type Gateway interface {
	Send(ctx context.Context, recipient int64, content Content) error
	Publish(ctx context.Context, channel string, content Content) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
