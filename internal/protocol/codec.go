package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// timestampLayout renders ISO 8601 with millisecond precision, matching what
// clients expect from Date.toISOString().
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatError describes a client frame that cannot be processed. Message is
// safe to echo back to the client verbatim in an error frame.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string {
	return e.Message
}

// ParseRequest decodes one inbound client frame. Every returned error is a
// *FormatError whose message is meant for the client, not the logs.
func ParseRequest(data []byte) (Request, error) {
	var envelope struct {
		Type           string          `json:"type"`
		SubscriptionID any             `json:"subscriptionId"`
		Subscriptions  json.RawMessage `json:"subscriptions"`
		FeedIDs        json.RawMessage `json:"feedIds"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &FormatError{Message: "Invalid JSON format"}
	}

	switch envelope.Type {
	case TypeSubscribe:
		feedIDs, err := parseSubscriptions(envelope.Subscriptions)
		if err != nil {
			return nil, err
		}
		return SubscribeRequest{SubscriptionID: envelope.SubscriptionID, FeedIDs: feedIDs}, nil
	case TypeUnsubscribe:
		feedIDs, err := parseFeedIDs(envelope.FeedIDs)
		if err != nil {
			return nil, err
		}
		return UnsubscribeRequest{FeedIDs: feedIDs}, nil
	case TypePing:
		return PingRequest{}, nil
	case "":
		return nil, &FormatError{Message: "Missing message type"}
	default:
		return nil, &FormatError{Message: fmt.Sprintf("Unknown message type: %s", envelope.Type)}
	}
}

// parseSubscriptions extracts feed IDs from a subscribe frame's
// "subscriptions" array of {"feedId": n} objects. The array itself is
// required; entries that fail to decode are skipped.
func parseSubscriptions(raw json.RawMessage) ([]int64, error) {
	entries, err := requireArray(raw, "subscribe requires a subscriptions array")
	if err != nil {
		return nil, err
	}

	feedIDs := make([]int64, 0, len(entries))
	for _, entry := range entries {
		var sub struct {
			FeedID int64 `json:"feedId"`
		}
		if err := json.Unmarshal(entry, &sub); err != nil {
			continue
		}
		feedIDs = append(feedIDs, sub.FeedID)
	}
	return feedIDs, nil
}

// parseFeedIDs extracts feed IDs from an unsubscribe frame's "feedIds" array
// of plain integers, with the same array-required, entries-lenient rules.
func parseFeedIDs(raw json.RawMessage) ([]int64, error) {
	entries, err := requireArray(raw, "unsubscribe requires a feedIds array")
	if err != nil {
		return nil, err
	}

	feedIDs := make([]int64, 0, len(entries))
	for _, entry := range entries {
		var feedID int64
		if err := json.Unmarshal(entry, &feedID); err != nil {
			continue
		}
		feedIDs = append(feedIDs, feedID)
	}
	return feedIDs, nil
}

func requireArray(raw json.RawMessage, message string) ([]json.RawMessage, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, &FormatError{Message: message}
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, &FormatError{Message: message}
	}
	return entries, nil
}

// EncodeConnected builds the greeting frame sent right after the upgrade.
func EncodeConnected(clientID int64, message string) []byte {
	return marshal(connectedMessage{Type: TypeConnected, ClientID: clientID, Message: message})
}

// EncodePriceUpdate builds a price push frame.
func EncodePriceUpdate(ts time.Time, updates []PriceLevel) []byte {
	if updates == nil {
		updates = []PriceLevel{}
	}
	return marshal(priceUpdateMessage{Type: TypePriceUpdate, Timestamp: FormatTimestamp(ts), Updates: updates})
}

// EncodeSubscribed builds the subscription ack frame.
func EncodeSubscribed(subscriptionID any, feeds []int64) []byte {
	if feeds == nil {
		feeds = []int64{}
	}
	return marshal(subscribedMessage{Type: TypeSubscribed, SubscriptionID: subscriptionID, SubscribedFeeds: feeds})
}

// EncodeUnsubscribed builds the unsubscription ack frame.
func EncodeUnsubscribed(feeds []int64) []byte {
	if feeds == nil {
		feeds = []int64{}
	}
	return marshal(unsubscribedMessage{Type: TypeUnsubscribed, UnsubscribedFeeds: feeds})
}

// EncodePong builds the reply to a ping frame.
func EncodePong(ts time.Time) []byte {
	return marshal(pongMessage{Type: TypePong, Timestamp: FormatTimestamp(ts)})
}

// EncodeError builds an error frame with a client-facing message.
func EncodeError(message string) []byte {
	return marshal(errorMessage{Type: TypeError, Message: message})
}

// FormatTimestamp renders ts as an ISO 8601 UTC string.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(timestampLayout)
}

func marshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable with a subscriptionId that json cannot encode, which
		// cannot come out of a decoded frame.
		slog.Error("Failed to marshal outbound message", "error", err)
		return []byte(`{"type":"error","message":"Internal encoding error"}`)
	}
	return data
}
