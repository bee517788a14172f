package eligibility

import "cazlyncNotifier/internal/db"

// FirstMessageLookahead is how many of the buyer's earliest messages are
// needed to decide IsFirstBuyerMessage.
const FirstMessageLookahead = 2

// MessageRecipient is the other participant of the session.
func MessageRecipient(session *db.ChatSession, senderID string) string {
	if senderID == session.SellerID {
		return session.BuyerID
	}
	return session.SellerID
}

func IsBuyerMessage(session *db.ChatSession, message *db.Message) bool {
	return session.BuyerID != "" && message.SenderID == session.BuyerID
}

// IsFirstBuyerMessage decides whether messageID is the buyer's first message
// given the buyer's earliest messages in ascending timestamp order. An empty
// list means the store has not caught up with the write yet and the message
// is taken to be the first.
func IsFirstBuyerMessage(messageID string, earliest []db.Message) bool {
	if len(earliest) == 0 {
		return true
	}
	return earliest[0].ID == messageID
}
