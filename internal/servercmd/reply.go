package servercmd

import (
	"encoding/json"
	"log/slog"
)

// ReplyType is the closed set of ServerReply type tags. Any tag not in this
// set decodes to Unknown.
type ReplyType string

const (
	ReplyLogin          ReplyType = "login"
	ReplyMsg            ReplyType = "msg"
	ReplyAlert          ReplyType = "alert"
	ReplyError          ReplyType = "error"
	ReplyResult         ReplyType = "result"
	ReplyLog            ReplyType = "log"
	ReplySessionConf    ReplyType = "sessionconf"
	ReplySizeLimit      ReplyType = "sizelimit"
	ReplyStatus         ReplyType = "status"
	ReplyReset          ReplyType = "reset"
	ReplyAutoReset      ReplyType = "autoreset"
	ReplyCatchup        ReplyType = "catchup"
	ReplyCaughtUp       ReplyType = "caughtup"
	ReplyBanImpEx       ReplyType = "banimpex"
	ReplyOutOfSpace     ReplyType = "outofspace"
	ReplySStart         ReplyType = "sstart"
	ReplySProgress      ReplyType = "sprogress"
	ReplyPasswordChange ReplyType = "passwordchange"
	ReplyInviteCreated  ReplyType = "invitecreated"
	ReplyThumbnail      ReplyType = "thumbnail"
	ReplyUnknown        ReplyType = "unknown"
)

var knownReplyTypes = map[ReplyType]struct{}{
	ReplyLogin: {}, ReplyMsg: {}, ReplyAlert: {}, ReplyError: {}, ReplyResult: {},
	ReplyLog: {}, ReplySessionConf: {}, ReplySizeLimit: {}, ReplyStatus: {},
	ReplyReset: {}, ReplyAutoReset: {}, ReplyCatchup: {}, ReplyCaughtUp: {},
	ReplyBanImpEx: {}, ReplyOutOfSpace: {}, ReplySStart: {}, ReplySProgress: {},
	ReplyPasswordChange: {}, ReplyInviteCreated: {}, ReplyThumbnail: {},
}

// ServerReply is a server->client structured notification: {type, message?,
// ...type-specific fields}. Fields holds the type-specific payload; callers
// normally build one via the Make* constructors below rather than by hand.
type ServerReply struct {
	Type    ReplyType
	Message string
	Fields  map[string]any
}

// MarshalJSON flattens Type, Message, and Fields into one JSON object.
func (r ServerReply) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["type"] = string(r.Type)
	if r.Message != "" {
		out["message"] = r.Message
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads type/message into their dedicated fields and
// everything else into Fields. An unrecognized type tag decodes to
// ReplyUnknown rather than failing.
func (r *ServerReply) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t, _ := raw["type"].(string)
	rt := ReplyType(t)
	if _, ok := knownReplyTypes[rt]; !ok {
		rt = ReplyUnknown
	}
	msg, _ := raw["message"].(string)

	delete(raw, "type")
	delete(raw, "message")

	r.Type = rt
	r.Message = msg
	r.Fields = raw
	return nil
}

// Encode marshals r to its JSON wire form.
func (r ServerReply) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// ParseServerReply decodes data into a ServerReply. Malformed JSON never
// fails the caller: it logs a warning (when log is non-nil) and returns the
// empty Unknown sentinel.
func ParseServerReply(data []byte, log *slog.Logger) ServerReply {
	var r ServerReply
	if err := json.Unmarshal(data, &r); err != nil {
		if log != nil {
			log.Warn("servercmd.reply.parse.bad_json", "err", err)
		}
		return ServerReply{Type: ReplyUnknown}
	}
	return r
}

// ---- factory functions, grounded on the upstream make* helpers ----

func MakeLogin(sessionID string) ServerReply {
	return ServerReply{Type: ReplyLogin, Fields: map[string]any{"session": sessionID}}
}

func MakeMsg(message string, alert bool) ServerReply {
	return ServerReply{Type: ReplyMsg, Message: message, Fields: map[string]any{"alert": alert}}
}

func MakeAlert(message string) ServerReply {
	return ServerReply{Type: ReplyAlert, Message: message}
}

func MakeError(code, message string) ServerReply {
	return ServerReply{Type: ReplyError, Message: message, Fields: map[string]any{"code": code}}
}

func MakeResult(cmd string, ok bool, message string) ServerReply {
	return ServerReply{Type: ReplyResult, Message: message, Fields: map[string]any{"cmd": cmd, "ok": ok}}
}

func MakeLog(level, message string) ServerReply {
	return ServerReply{Type: ReplyLog, Message: message, Fields: map[string]any{"level": level}}
}

func MakeSessionConf(conf map[string]any) ServerReply {
	return ServerReply{Type: ReplySessionConf, Fields: map[string]any{"config": conf}}
}

func MakeSizeLimitWarning(sizeInBytes, limit uint) ServerReply {
	return ServerReply{Type: ReplySizeLimit, Fields: map[string]any{"size": sizeInBytes, "limit": limit}}
}

func MakeStatus(status map[string]any) ServerReply {
	return ServerReply{Type: ReplyStatus, Fields: status}
}

func MakeReset(boardSize int) ServerReply {
	return ServerReply{Type: ReplyReset, Fields: map[string]any{"size": boardSize}}
}

func MakeAutoReset(threshold uint) ServerReply {
	return ServerReply{Type: ReplyAutoReset, Fields: map[string]any{"threshold": threshold}}
}

func MakeCatchup(count int) ServerReply {
	return ServerReply{Type: ReplyCatchup, Fields: map[string]any{"count": count}}
}

func MakeCaughtUp() ServerReply {
	return ServerReply{Type: ReplyCaughtUp}
}

func MakeBanImportResult(total, imported int) ServerReply {
	return ServerReply{Type: ReplyBanImpEx, Fields: map[string]any{
		"op": "import", "total": total, "imported": imported,
	}}
}

func MakeBanExportResult(count int) ServerReply {
	return ServerReply{Type: ReplyBanImpEx, Fields: map[string]any{"op": "export", "count": count}}
}

func MakeOutOfSpace() ServerReply {
	return ServerReply{Type: ReplyOutOfSpace}
}

func MakeStreamedResetStart(correlator string) ServerReply {
	return ServerReply{Type: ReplySStart, Fields: map[string]any{"correlator": correlator}}
}

func MakeStreamedResetProgress(received, expected int64) ServerReply {
	return ServerReply{Type: ReplySProgress, Fields: map[string]any{"received": received, "expected": expected}}
}

func MakePasswordChange(hasPassword bool) ServerReply {
	return ServerReply{Type: ReplyPasswordChange, Fields: map[string]any{"hasPassword": hasPassword}}
}

func MakeInviteCreated(secret string, maxUses int, trust, op bool) ServerReply {
	return ServerReply{Type: ReplyInviteCreated, Fields: map[string]any{
		"secret": secret, "maxUses": maxUses, "trust": trust, "op": op,
	}}
}

func MakeThumbnail(correlator string) ServerReply {
	return ServerReply{Type: ReplyThumbnail, Fields: map[string]any{"correlator": correlator}}
}
