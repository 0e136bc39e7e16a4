package httpsse

import (
	"github.com/gorilla/mux"
)

// NewRouter mounts every §4.8 operation under /devices/{slot}/... (mirroring
// the teacher's /ws/<device>/<service> path-segment convention) plus the
// slot-less GetPopulatedSlots and Connect endpoints.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/devices", s.handleGetPopulatedSlots).Methods("GET")
	r.HandleFunc("/devices/{slot}/value", s.handleGetValue).Methods("GET")
	r.HandleFunc("/devices/{slot}/value", s.handleSetValue).Methods("POST")
	r.HandleFunc("/devices/{slot}/values", s.handleMultiSetValue).Methods("POST")
	r.HandleFunc("/devices/{slot}/param", s.handleGetParam).Methods("GET")
	r.HandleFunc("/devices/{slot}/param_info", s.handleParamInfoRequest).Methods("GET")
	r.HandleFunc("/devices/{slot}/request", s.handleDeviceRequest).Methods("GET")
	r.HandleFunc("/devices/{slot}/command", s.handleExecuteCommand).Methods("POST")
	r.HandleFunc("/devices/{slot}/languages", s.handleListLanguages).Methods("GET")
	r.HandleFunc("/devices/{slot}/languages", s.handleAddLanguage).Methods("POST")
	r.HandleFunc("/devices/{slot}/subscriptions", s.handleUpdateSubscriptions).Methods("POST")
	r.HandleFunc("/devices/{slot}/subscriptions", s.handleListSubscriptions).Methods("GET")
	r.HandleFunc("/devices/{slot}/subscriptions", s.handleAddSubscription).Methods("PUT")
	r.HandleFunc("/devices/{slot}/subscriptions", s.handleRemoveSubscription).Methods("DELETE")
	r.HandleFunc("/connect", s.handleConnect).Methods("GET")
	r.HandleFunc("/connect/ws", s.handleConnectWS).Methods("GET")

	return r
}
