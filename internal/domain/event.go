package domain

// EventKind classifies a normalized inbound event
type EventKind string

const (
	EventStart    EventKind = "start"
	EventText     EventKind = "text"
	EventCallback EventKind = "callback"
)

// Event is a transport-neutral inbound update. The transport layer
// normalizes raw updates into one of the three kinds; the core never
// sees transport payloads.
type Event struct {
	Kind  EventKind
	Text  string // message text for EventText
	Token string // selection token for EventCallback
}

// Sender identifies the user behind an event
type Sender struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
}

// Button is one selectable option in a response
type Button struct {
	Label string
	Token string
}

// Response is the abstract outbound descriptor. The transport layer
// renders it into concrete markup; the core never builds markup itself.
type Response struct {
	Text    string
	Buttons [][]Button
	Alert   bool // render as a popup alert rather than a message, where supported
}

// TextResponse is a buttonless response
func TextResponse(text string) Response {
	return Response{Text: text}
}
