package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"bookiebot/internal/bets"
	"bookiebot/internal/store"
	"bookiebot/pkg/config"
	"bookiebot/pkg/utils"
)

// ReactionAdd handles the checkmark indicating someone accepted a bet.
func (h *Handler) ReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.Emoji.Name != AcceptEmoji || r.UserID == s.State.User.ID {
		return
	}

	bet, err := h.engine.AcceptByMessage(context.Background(), r.MessageID, r.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Reaction on a message that is not a bet announcement.
		return
	case errors.Is(err, bets.ErrForbidden):
		// Proposer clicked their own bet.
		return
	case errors.Is(err, store.ErrInvalidState):
		// Already accepted, or the sweep got there first.
		return
	case errors.Is(err, store.ErrInsufficientFunds):
		s.ChannelMessageSendEmbed(r.ChannelID, utils.ErrorEmbed(
			fmt.Sprintf("Insufficient %s to accept this bet.", config.Bot.CurrencyName)))
		return
	case err != nil:
		h.log.Error("accept failed",
			zap.String("message_id", r.MessageID),
			zap.String("user_id", r.UserID),
			zap.Error(err))
		return
	}

	s.ChannelMessageSendEmbed(r.ChannelID, utils.SuccessEmbed("Bet Accepted",
		fmt.Sprintf("<@%s> accepted bet **#%d** for **%d %s**.",
			r.UserID, bet.ID, bet.Stake, config.Bot.CurrencyName)))
}
