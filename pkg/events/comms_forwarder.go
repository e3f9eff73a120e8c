package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/viverse-bridge/pkg/codec"
	"github.com/morezero/viverse-bridge/pkg/commsutil"
)

const commsForwarderLogPrefix = "events:comms_forwarder"

// CommsForwarderOpts configures CommsForwarder. Nil or zero values use defaults.
type CommsForwarderOpts struct {
	// SubjectPrefix overrides the granular subject prefix (e.g. from FORWARD_EVENT_PREFIX).
	SubjectPrefix string
	// GlobalSubject overrides the global event subject (e.g. from FORWARD_EVENT_SUBJECT).
	GlobalSubject string
}

// CommsForwarder republishes push events to COMMS subjects.
type CommsForwarder struct {
	nc            *comms.Conn
	subjectPrefix string
	globalSubject string
}

// NewCommsForwarder creates a new CommsForwarder. Pass nil for opts to use defaults.
func NewCommsForwarder(nc *comms.Conn, opts *CommsForwarderOpts) *CommsForwarder {
	prefix := commsutil.SubjectForwardPrefix
	global := commsutil.SubjectForwardAll
	if opts != nil && opts.SubjectPrefix != "" {
		prefix = opts.SubjectPrefix
	}
	if opts != nil && opts.GlobalSubject != "" {
		global = opts.GlobalSubject
	}
	return &CommsForwarder{nc: nc, subjectPrefix: prefix, globalSubject: global}
}

// Forward publishes the event to both its granular subject and the global subject.
func (f *CommsForwarder) Forward(_ context.Context, event *Payload) error {
	data, err := codec.EncodeEvent(*event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsForwarderLogPrefix, err)
	}

	granularSubject := commsutil.BuildEventSubject(f.subjectPrefix, event.Category, event.Type)
	if err := f.nc.Publish(granularSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsForwarderLogPrefix, granularSubject, err))
		return err
	}

	if err := f.nc.Publish(f.globalSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsForwarderLogPrefix, f.globalSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Forwarded event %s:%s", commsForwarderLogPrefix, event.Category, event.Type))
	return nil
}
