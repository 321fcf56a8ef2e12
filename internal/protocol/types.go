package protocol

// Message type values used in the "type" field of every frame.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"

	TypeConnected    = "connected"
	TypePriceUpdate  = "priceUpdate"
	TypeSubscribed   = "subscribed"
	TypeUnsubscribed = "unsubscribed"
	TypePong         = "pong"
	TypeError        = "error"
)

// Request is a parsed inbound client frame.
type Request interface{ isRequest() }

// SubscribeRequest asks to receive updates for the listed feeds.
// SubscriptionID is an opaque client token echoed back in the ack.
type SubscribeRequest struct {
	SubscriptionID any
	FeedIDs        []int64
}

func (SubscribeRequest) isRequest() {}

// UnsubscribeRequest asks to stop receiving updates for the listed feeds.
type UnsubscribeRequest struct {
	FeedIDs []int64
}

func (UnsubscribeRequest) isRequest() {}

// PingRequest asks for a pong with the server's current time.
type PingRequest struct{}

func (PingRequest) isRequest() {}

// PriceLevel is one feed's value inside a priceUpdate frame. Price is the
// decimal value serialized as text to avoid floating-point drift on the wire.
type PriceLevel struct {
	FeedID int64  `json:"feedId"`
	Price  string `json:"price"`
}

type connectedMessage struct {
	Type     string `json:"type"`
	ClientID int64  `json:"clientId"`
	Message  string `json:"message"`
}

type priceUpdateMessage struct {
	Type      string       `json:"type"`
	Timestamp string       `json:"timestamp"`
	Updates   []PriceLevel `json:"updates"`
}

type subscribedMessage struct {
	Type            string  `json:"type"`
	SubscriptionID  any     `json:"subscriptionId"`
	SubscribedFeeds []int64 `json:"subscribedFeeds"`
}

type unsubscribedMessage struct {
	Type              string  `json:"type"`
	UnsubscribedFeeds []int64 `json:"unsubscribedFeeds"`
}

type pongMessage struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
