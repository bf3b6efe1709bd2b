// Package bot turns chat messages into daily log operations.
package bot

import (
	"context"
	"strings"
)

// Command names as typed by users, without the leading slash.
const (
	CmdStart    = "start"
	CmdHelp     = "help"
	CmdList     = "list"
	CmdDelete   = "delete"
	CmdSend     = "send"
	CmdGet      = "get"
	CmdSummary  = "summary"
	CmdUsage    = "usage"
	CmdSetLimit = "setlimit"
)

// Request is one inbound chat message from a user.
type Request struct {
	ID     string
	UserID string // bare address, the log and quota key
	// Command is empty for plain text and photos.
	Command       string
	Args          []string
	Text          string
	AttachmentURL string
}

// Handler executes a request and returns the reply text.
type Handler func(ctx context.Context, req Request) (string, error)

// ParseRequest splits a message body into a command and its arguments.
// Bodies not starting with "/" are plain text. A "@suffix" on the command
// word ("/send@bot") is dropped.
func ParseRequest(id, userID, body, attachmentURL string) Request {
	req := Request{ID: id, UserID: userID, Text: strings.TrimSpace(body), AttachmentURL: attachmentURL}
	if attachmentURL != "" || !strings.HasPrefix(req.Text, "/") {
		return req
	}

	fields := strings.Fields(req.Text)
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	req.Command = strings.ToLower(name)
	req.Args = fields[1:]
	return req
}

// UsageKey is the name a command is metered under ("send" → "send_command").
func UsageKey(command string) string {
	return command + "_command"
}
