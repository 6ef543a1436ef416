// Package kit defines the narrow interfaces the scheduler core consumes:
// outbound delivery, status-recipient resolution, and media staging.
//
// Everything here is a collaborator contract. The core never imports a
// concrete transport; adapters live under internal/adapters.
package kit

import (
	"context"
	"io"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Target is where a delivery goes.
//
// For direct messages Chat is set and Recipients is nil. For status
// broadcasts Chat is empty and Recipients holds the resolved recipient list.
type Target struct {
	Chat       string
	Recipients []string
}

// Broadcast reports whether the target is a status broadcast.
func (t Target) Broadcast() bool { return t.Chat == "" }

// Delivery is the only side effect the scheduler core produces.
// Implementations own the wire protocol and its rate limits; calls must
// respect ctx cancellation/deadline.
type Delivery interface {
	SendText(ctx context.Context, to Target, text string) error
	SendMedia(ctx context.Context, to Target, path, caption string, kind MediaKind) error
}

// Contacts resolves the current status-broadcast recipient list.
type Contacts interface {
	ResolveStatusRecipients(ctx context.Context) ([]string, error)
}

// Stager copies inbound media to a local path the scheduler can hold on to.
// The scheduler deletes the returned path once the owning job is terminal.
type Stager interface {
	Stage(ctx context.Context, src io.Reader, name string) (string, error)
}
