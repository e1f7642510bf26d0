package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/darklock-net/gatehouse/admission"
	"github.com/darklock-net/gatehouse/admission/engine"
	"github.com/darklock-net/gatehouse/platform"
	"github.com/darklock-net/gatehouse/util"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"
)

// RunConsumer subscribes to the platform event gateway and dispatches events
// into the admission engine. The connection is re-dialed with capped backoff
// on stream errors, resuming from the last seen sequence number.
func (s *Server) RunConsumer(ctx context.Context) error {
	cur, err := s.ReadLastCursor(ctx)
	if err != nil {
		return err
	}
	atomic.StoreInt64(&s.lastSeq, cur)

	backoff := time.Second
	for {
		err := s.consumeGateway(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		gatewayReconnects.Inc()
		s.logger.Warn("gateway stream disconnected, will retry", "err", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff = backoff * 2
		}
	}
}

func (s *Server) consumeGateway(ctx context.Context) error {
	cur := atomic.LoadInt64(&s.lastSeq)

	dialer := websocket.DefaultDialer
	u, err := url.Parse(util.WebsocketUrlForHost(s.gatewayHost))
	if err != nil {
		return fmt.Errorf("invalid gateway host URI: %w", err)
	}
	u.Path = "gateway/subscribe"
	if cur != 0 {
		u.RawQuery = fmt.Sprintf("cursor=%d", cur)
	}
	header := http.Header{
		"User-Agent": []string{fmt.Sprintf("porter/%s", versioninfo.Short())},
	}
	if s.botToken != "" {
		header.Set("Authorization", "Bot "+s.botToken)
	}
	s.logger.Info("subscribing to gateway event stream", "upstream", s.gatewayHost, "cursor", cur)
	con, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("subscribing to gateway failed (dialing): %w", err)
	}

	// closing the connection is what unblocks the read below on shutdown
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		con.Close()
	}()

	for {
		_, raw, err := con.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading gateway event: %w", err)
		}
		var evt platform.GatewayEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			s.logger.Warn("malformed gateway event", "err", err)
			eventsFailed.Inc()
			continue
		}
		if evt.Seq > 0 {
			atomic.StoreInt64(&s.lastSeq, evt.Seq)
			currentSeq.Set(float64(evt.Seq))
		}
		s.handleGatewayEvent(ctx, &evt)
	}
}

// NOTE: for now, event handling basically never errors up to the stream loop;
// failures are logged and counted so one bad event can't stall the cursor.
func (s *Server) handleGatewayEvent(ctx context.Context, evt *platform.GatewayEvent) {
	ctx, span := tracer.Start(ctx, "handleGatewayEvent")
	defer span.End()

	switch evt.Type {
	case platform.EventMemberJoin:
		joinsReceived.Inc()
		var join platform.MemberJoinEvent
		if err := json.Unmarshal(evt.Data, &join); err != nil {
			s.logger.Warn("malformed member join event", "err", err, "seq", evt.Seq)
			eventsFailed.Inc()
			return
		}
		member := admission.MemberMeta{
			CommunityID: join.CommunityID,
			MemberID:    join.MemberID,
			DisplayName: join.DisplayName,
			CreatedAt:   join.CreatedAt,
			HasAvatar:   join.HasAvatar,
			MutualCount: join.MutualCount,
			RoleIDs:     join.RoleIDs,
		}
		if err := s.engine.ProcessJoinEvent(ctx, member); err != nil {
			s.logger.Error("processing member join failed", "err", err, "community", join.CommunityID, "member", join.MemberID, "seq", evt.Seq)
			eventsFailed.Inc()
		}
	case platform.EventMemberLeave:
		leavesReceived.Inc()
		var leave platform.MemberLeaveEvent
		if err := json.Unmarshal(evt.Data, &leave); err != nil {
			s.logger.Warn("malformed member leave event", "err", err, "seq", evt.Seq)
			eventsFailed.Inc()
			return
		}
		if err := s.engine.ProcessMemberLeave(ctx, leave.CommunityID, leave.MemberID); err != nil {
			s.logger.Error("processing member leave failed", "err", err, "community", leave.CommunityID, "member", leave.MemberID, "seq", evt.Seq)
			eventsFailed.Inc()
		}
	case platform.EventMessageCreate:
		messagesReceived.Inc()
		var msg platform.MessageCreateEvent
		if err := json.Unmarshal(evt.Data, &msg); err != nil {
			s.logger.Warn("malformed message event", "err", err, "seq", evt.Seq)
			eventsFailed.Inc()
			return
		}
		s.handleMessage(ctx, &msg, evt.Seq)
	case platform.EventInteraction:
		interactionsReceived.Inc()
		var act platform.InteractionEvent
		if err := json.Unmarshal(evt.Data, &act); err != nil {
			s.logger.Warn("malformed interaction event", "err", err, "seq", evt.Seq)
			eventsFailed.Inc()
			return
		}
		s.handleInteraction(ctx, &act, evt.Seq)
	default:
		eventsSkipped.Inc()
	}
}

func (s *Server) handleMessage(ctx context.Context, msg *platform.MessageCreateEvent, seq int64) {
	var (
		outcome admission.Outcome
		err     error
	)
	if msg.Direct {
		// direct messages carry no community scope; the engine resolves
		// which pending challenge the reply belongs to
		outcome, err = s.engine.ProcessDirectResponse(ctx, msg.MemberID, msg.Content)
	} else {
		if msg.CommunityID == "" {
			eventsSkipped.Inc()
			return
		}
		outcome, err = s.engine.ProcessResponseEvent(ctx, msg.CommunityID, msg.MemberID, admission.SurfaceChannel, msg.Content)
	}
	if err != nil {
		s.logger.Error("processing message response failed", "err", err, "member", msg.MemberID, "seq", seq)
		eventsFailed.Inc()
		return
	}
	s.logger.Debug("message response processed", "outcome", outcome, "member", msg.MemberID)
}

func (s *Server) handleInteraction(ctx context.Context, act *platform.InteractionEvent, seq int64) {
	var (
		outcome admission.Outcome
		err     error
	)
	switch act.Kind {
	case platform.InteractionButton:
		communityID, ok := engine.ParseVerifyCustomID(act.CustomID)
		if !ok {
			eventsSkipped.Inc()
			return
		}
		// prefer the event's own scope; the custom ID covers
		// direct-message clicks which don't carry one
		if act.CommunityID != "" {
			communityID = act.CommunityID
		}
		outcome, err = s.engine.ProcessResponseEvent(ctx, communityID, act.MemberID, admission.SurfaceButton, "")
	case platform.InteractionModal:
		outcome, err = s.engine.ProcessResponseEvent(ctx, act.CommunityID, act.MemberID, admission.SurfaceForm, act.Input)
	case platform.InteractionCommand:
		outcome, err = s.engine.ProcessResponseEvent(ctx, act.CommunityID, act.MemberID, admission.SurfaceCommand, act.Input)
	default:
		eventsSkipped.Inc()
		return
	}
	if err != nil {
		s.logger.Error("processing interaction failed", "err", err, "kind", act.Kind, "member", act.MemberID, "seq", seq)
		eventsFailed.Inc()
		return
	}
	s.logger.Debug("interaction processed", "outcome", outcome, "kind", act.Kind, "member", act.MemberID)
}
