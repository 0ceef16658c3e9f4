package search

import "stocksearch/internal/stock"

// State is what a search session shows. The set of implementations is closed:
// Loading, Success, Empty and Error.
type State interface {
	isState()
}

type Loading struct{}

type Success struct {
	Stocks []stock.Stock
	Query  string
}

// Empty means the search finished without matches.
type Empty struct{}

type Error struct {
	Message string
}

func (Loading) isState() {}
func (Success) isState() {}
func (Empty) isState()   {}
func (Error) isState()   {}

// View is the wire form of a State.
type View struct {
	Type    string        `json:"type"`
	Query   string        `json:"query,omitempty"`
	Stocks  []stock.Stock `json:"stocks,omitempty"`
	Message string        `json:"message,omitempty"`
}

const (
	TypeLoading = "loading"
	TypeSuccess = "success"
	TypeEmpty   = "empty"
	TypeError   = "error"
)

func Render(s State) View {
	switch v := s.(type) {
	case Loading:
		return View{Type: TypeLoading}
	case Success:
		return View{Type: TypeSuccess, Query: v.Query, Stocks: v.Stocks}
	case Empty:
		return View{Type: TypeEmpty}
	case Error:
		return View{Type: TypeError, Message: v.Message}
	default:
		return View{Type: TypeError, Message: stock.GenericMessage}
	}
}

// FromResult maps a finished search onto a terminal state.
func FromResult(query string, stocks []stock.Stock, err error) State {
	if err != nil {
		return Error{Message: stock.UserMessage(err)}
	}
	if len(stocks) == 0 {
		return Empty{}
	}
	return Success{Stocks: stocks, Query: query}
}
