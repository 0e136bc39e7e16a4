package httpsse

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/stepherg/catenago/internal/rpc"
	"github.com/stepherg/catenago/internal/status"
	"github.com/stepherg/catenago/pkg/wire"
)

// keepaliveInterval governs how often idle SSE streams emit a comment frame.
const keepaliveInterval = 25 * time.Second

// Server binds an *rpc.Service onto the HTTP/SSE transport.
type Server struct {
	Service *rpc.Service
	Logger  *zap.Logger
}

// NewServer wraps svc for mounting via NewRouter.
func NewServer(svc *rpc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Service: svc, Logger: logger}
}

func slotFromPath(r *http.Request) (uint32, error) {
	raw := mux.Vars(r)["slot"]
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, status.New("Invalid slot path segment", status.INVALID_ARGUMENT)
	}
	return uint32(v), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatusFor(err), struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}

func (s *Server) handleGetPopulatedSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.Service.GetPopulatedSlots(r.Header.Get("Authorization"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *Server) handleGetValue(w http.ResponseWriter, r *http.Request) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	oid := r.URL.Query().Get("oid")
	v, err := s.Service.GetValue(r.Header.Get("Authorization"), slot, oid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleGetParam(w http.ResponseWriter, r *http.Request) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	oid := r.URL.Query().Get("oid")
	p, err := s.Service.GetParam(r.Header.Get("Authorization"), slot, oid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var payload wire.SingleSetValuePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErr(w, status.New("Malformed request body", status.INVALID_ARGUMENT))
		return
	}
	if err := s.Service.SetValue(r.Header.Get("Authorization"), slot, payload); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &wire.Empty{})
}

func (s *Server) handleMultiSetValue(w http.ResponseWriter, r *http.Request) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var payload wire.MultiSetValuePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErr(w, status.New("Malformed request body", status.INVALID_ARGUMENT))
		return
	}
	if err := s.Service.MultiSetValue(r.Header.Get("Authorization"), slot, payload); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &wire.Empty{})
}

func (s *Server) handleAddLanguage(w http.ResponseWriter, r *http.Request) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var payload wire.AddLanguagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErr(w, status.New("Malformed request body", status.INVALID_ARGUMENT))
		return
	}
	if err := s.Service.AddLanguage(r.Header.Get("Authorization"), slot, payload); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &wire.Empty{})
}

func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	list, err := s.Service.ListLanguages(r.Header.Get("Authorization"), slot)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func parseDetailLevel(raw string) wire.DetailLevel {
	switch strings.ToLower(raw) {
	case "minimal":
		return wire.DetailMinimal
	case "subscriptions":
		return wire.DetailSubscriptions
	case "commands":
		return wire.DetailCommands
	case "none":
		return wire.DetailNone
	default:
		return wire.DetailFull
	}
}

func (s *Server) handleDeviceRequest(w http.ResponseWriter, r *http.Request) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	q := r.URL.Query()
	var subscribed []string
	if raw := q.Get("subscribed_oids"); raw != "" {
		subscribed = strings.Split(raw, ",")
	}
	payload := wire.DeviceRequestPayload{Slot: slot, DetailLevel: parseDetailLevel(q.Get("detail_level")), SubscribedOids: subscribed}

	ew, err := newEventWriter(w)
	if err != nil {
		writeErr(w, err)
		return
	}
	done := make(chan struct{})
	defer close(done)
	go ew.keepalive(keepaliveInterval, done)

	if err := s.Service.DeviceRequest(r.Header.Get("Authorization"), payload, func(c *wire.DeviceComponent) error {
		return ew.send("component", c)
	}); err != nil {
		_ = ew.sendError(err)
	}
}

func (s *Server) handleExecuteCommand(w http.ResponseWriter, r *http.Request) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var payload wire.ExecuteCommandPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErr(w, status.New("Malformed request body", status.INVALID_ARGUMENT))
		return
	}

	ew, err := newEventWriter(w)
	if err != nil {
		writeErr(w, err)
		return
	}
	done := make(chan struct{})
	defer close(done)
	go ew.keepalive(keepaliveInterval, done)

	if err := s.Service.ExecuteCommand(r.Header.Get("Authorization"), slot, payload, func(resp *wire.CommandResponse) error {
		return ew.send("response", resp)
	}); err != nil {
		_ = ew.sendError(err)
	}
}

func (s *Server) handleParamInfoRequest(w http.ResponseWriter, r *http.Request) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	q := r.URL.Query()
	payload := wire.ParamInfoRequestPayload{
		Slot:      slot,
		OidPrefix: q.Get("oid_prefix"),
		Recursive: q.Get("recursive") == "true",
	}

	ew, err := newEventWriter(w)
	if err != nil {
		writeErr(w, err)
		return
	}
	done := make(chan struct{})
	defer close(done)
	go ew.keepalive(keepaliveInterval, done)

	if err := s.Service.ParamInfoRequest(r.Header.Get("Authorization"), payload, func(resp *wire.ParamInfoResponse) error {
		return ew.send("param_info", resp)
	}); err != nil {
		_ = ew.sendError(err)
	}
}

func (s *Server) handleUpdateSubscriptions(w http.ResponseWriter, r *http.Request) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var payload wire.UpdateSubscriptionsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErr(w, status.New("Malformed request body", status.INVALID_ARGUMENT))
		return
	}

	ew, err := newEventWriter(w)
	if err != nil {
		writeErr(w, err)
		return
	}
	done := make(chan struct{})
	defer close(done)
	go ew.keepalive(keepaliveInterval, done)

	if err := s.Service.UpdateSubscriptions(r.Header.Get("Authorization"), slot, payload, func(c *wire.DeviceComponent) error {
		return ew.send("component", c)
	}); err != nil {
		_ = ew.sendError(err)
	}
}

// handleListSubscriptions is the REST Subscriptions controller's GET form:
// the materialised subscription set, distinct from the bulk SSE-streaming
// UpdateSubscriptions operation above.
func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	oids, err := s.Service.ListSubscriptions(r.Header.Get("Authorization"), slot)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Oids []string `json:"oids"`
	}{Oids: oids})
}

// handleAddSubscription is the REST controller's PUT form: one oid added
// via the same UpdateSubscriptions path as the bulk operation.
func (s *Server) handleAddSubscription(w http.ResponseWriter, r *http.Request) {
	s.singleSubscriptionChange(w, r, func(oid string) wire.UpdateSubscriptionsPayload {
		return wire.UpdateSubscriptionsPayload{AddedOids: []string{oid}}
	})
}

// handleRemoveSubscription is the REST controller's DELETE form.
func (s *Server) handleRemoveSubscription(w http.ResponseWriter, r *http.Request) {
	s.singleSubscriptionChange(w, r, func(oid string) wire.UpdateSubscriptionsPayload {
		return wire.UpdateSubscriptionsPayload{RemovedOids: []string{oid}}
	})
}

func (s *Server) singleSubscriptionChange(w http.ResponseWriter, r *http.Request, build func(oid string) wire.UpdateSubscriptionsPayload) {
	slot, err := slotFromPath(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	oid := r.URL.Query().Get("oid")
	if oid == "" {
		writeErr(w, status.New("oid query parameter is required", status.INVALID_ARGUMENT))
		return
	}

	var components []*wire.DeviceComponent
	emit := func(c *wire.DeviceComponent) error {
		components = append(components, c)
		return nil
	}
	if err := s.Service.UpdateSubscriptions(r.Header.Get("Authorization"), slot, build(oid), emit); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Components []*wire.DeviceComponent `json:"components,omitempty"`
	}{Components: components})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payload := wire.ConnectPayload{
		Language:        q.Get("language"),
		DetailLevel:     parseDetailLevel(q.Get("detail_level")),
		UserAgent:       r.Header.Get("User-Agent"),
		ForceConnection: q.Get("force_connection") == "true",
	}

	sess, err := s.Service.Connect(r.Header.Get("Authorization"), payload)
	if err != nil {
		writeErr(w, err)
		return
	}

	ew, err := newEventWriter(w)
	if err != nil {
		writeErr(w, err)
		return
	}
	done := make(chan struct{})
	defer close(done)
	go ew.keepalive(keepaliveInterval, done)

	if err := sess.Run(r.Context(), func(u *wire.PushUpdates) error {
		return ew.send("push_update", u)
	}); err != nil {
		_ = ew.sendError(err)
	}
}
