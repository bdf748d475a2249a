package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"

	"github.com/litecove/litecove/pkg/tunnel"
)

func (a *Agent) handleStream(ctx context.Context, stream net.Conn) {
	defer stream.Close() //nolint:errcheck // best-effort cleanup

	msgType, payload, err := tunnel.ReadRawFrame(stream)
	if err != nil {
		a.logger.Error("failed to read tunnel frame",
			slog.String("error", err.Error()),
		)
		return
	}

	switch msgType {
	case tunnel.MessageTypeHandshake:
		a.handleHandshake(stream, payload)
	case tunnel.MessageTypePing:
		a.handlePing(stream, payload)
	case tunnel.MessageTypeQuery:
		a.handleQuery(ctx, stream, payload)
	default:
		a.logger.Warn("unknown message type",
			slog.Int("type", int(msgType)),
		)
	}
}

func (a *Agent) handleHandshake(stream net.Conn, payload json.RawMessage) {
	var h tunnel.Handshake
	if err := json.Unmarshal(payload, &h); err != nil {
		a.logger.Error("failed to unmarshal handshake",
			slog.String("error", err.Error()),
		)
		return
	}

	ack := &tunnel.HandshakeAck{
		ProtocolVersion: tunnel.ProtocolVersion,
		AgentVersion:    a.agentVersion,
	}

	// Check protocol version compatibility (exact match for now).
	if h.ProtocolVersion != tunnel.ProtocolVersion {
		ack.Error = fmt.Sprintf("incompatible protocol version: server=%d, agent=%d", h.ProtocolVersion, tunnel.ProtocolVersion)
		a.logger.Error("handshake version mismatch",
			slog.Uint64("server_version", uint64(h.ProtocolVersion)),
			slog.Uint64("agent_version", uint64(tunnel.ProtocolVersion)),
		)
	} else {
		a.logger.Info("handshake received",
			slog.Uint64("protocol_version", uint64(h.ProtocolVersion)),
			slog.String("server_version", h.ServerVersion),
		)
	}

	if err := tunnel.WriteHandshakeAck(stream, ack); err != nil {
		a.logger.Error("failed to write handshake ack",
			slog.String("error", err.Error()),
		)
	}
}

func (a *Agent) handlePing(stream net.Conn, payload json.RawMessage) {
	var ping tunnel.Ping
	if err := json.Unmarshal(payload, &ping); err != nil {
		a.logger.Error("failed to unmarshal ping",
			slog.String("error", err.Error()),
		)
		return
	}

	pong := &tunnel.Pong{
		Timestamp: ping.Timestamp,
		Draining:  a.draining.Load(),
	}

	if err := tunnel.WritePong(stream, pong); err != nil {
		a.logger.Error("failed to write pong",
			slog.String("error", err.Error()),
		)
	}
}

func (a *Agent) handleQuery(ctx context.Context, stream net.Conn, payload json.RawMessage) {
	var q tunnel.Query
	if err := json.Unmarshal(payload, &q); err != nil {
		a.logger.Error("failed to unmarshal query",
			slog.String("error", err.Error()),
		)
		return
	}

	if err := q.Validate(); err != nil {
		a.logger.Error("invalid query",
			slog.String("error", err.Error()),
		)
		_ = tunnel.WriteResult(stream, &tunnel.Result{Error: err.Error()})
		return
	}

	res := a.handler.HandleQuery(ctx, &q)

	if res.Error != "" {
		a.logger.Warn("query failed",
			slog.String("request_id", q.RequestID),
			slog.String("error", res.Error),
		)
	} else {
		a.logger.Debug("query executed",
			slog.String("request_id", q.RequestID),
			slog.Int("rows", len(res.Rows)),
		)
	}

	if err := tunnel.WriteResult(stream, res); err != nil {
		a.logger.Error("failed to write result",
			slog.String("request_id", q.RequestID),
			slog.String("error", err.Error()),
		)
	}
}
