package stockws

import "time"

// Frame types exchanged on the search socket.
const (
	TypeQuery        = "query"
	TypeRetry        = "retry"
	TypeConnectivity = "connectivity"

	TypeLoading = "loading"
	TypeSuccess = "success"
	TypeEmpty   = "empty"
	TypeError   = "error"
)

// ClientMessage is sent by the client: a query edit or a retry request.
type ClientMessage struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
}

// ConnectivityMessage announces a change in network reachability.
type ConnectivityMessage struct {
	Type   string `json:"type"`
	Online bool   `json:"online"`
}

type Stock struct {
	Symbol   string    `json:"symbol"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	CachedAt time.Time `json:"cachedAt"`
}

// ServerMessage is any frame the server sends. Online is only set on
// connectivity frames.
type ServerMessage struct {
	Type    string  `json:"type"`
	Query   string  `json:"query,omitempty"`
	Stocks  []Stock `json:"stocks,omitempty"`
	Message string  `json:"message,omitempty"`
	Online  *bool   `json:"online,omitempty"`
}
