package commands

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// AcceptEmoji is the reaction a prospective acceptor clicks on a bet
// announcement.
const AcceptEmoji = "✅"

// DiscordNotifier implements the settlement engine's Notifier contract
// on top of a discordgo session. Delivery is best-effort: failures are
// logged here and never surfaced to the engine.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string // bet announcement channel
	log       *zap.Logger
}

// NewDiscordNotifier creates a notifier posting announcements to the
// configured bet channel.
func NewDiscordNotifier(session *discordgo.Session, channelID string, log *zap.Logger) *DiscordNotifier {
	return &DiscordNotifier{session: session, channelID: channelID, log: log}
}

func (n *DiscordNotifier) DeliverPrivateMessage(userID, text string) {
	ch, err := n.session.UserChannelCreate(userID)
	if err != nil {
		n.log.Warn("could not open DM channel",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	if _, err := n.session.ChannelMessageSend(ch.ID, text); err != nil {
		n.log.Warn("could not deliver DM",
			zap.String("user_id", userID), zap.Error(err))
	}
}

func (n *DiscordNotifier) PostPublicMessage(text string) (string, error) {
	msg, err := n.session.ChannelMessageSend(n.channelID, text)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (n *DiscordNotifier) RequestAcceptanceMarker(messageID string) {
	if err := n.session.MessageReactionAdd(n.channelID, messageID, AcceptEmoji); err != nil {
		n.log.Warn("could not add acceptance reaction",
			zap.String("message_id", messageID), zap.Error(err))
	}
}
