package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"bookiebot/internal/bets"
	"bookiebot/internal/models"
	"bookiebot/internal/store"
	"bookiebot/pkg/config"
	"bookiebot/pkg/utils"
)

// CmdTextBet opens a free-text wager:
// !b text_bet <text...> <amount> <duration_minutes>
func (h *Handler) CmdTextBet(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 3 {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.InfoEmbed("Usage",
			"`!b text_bet <text> <amount> <duration_minutes>`"))
		return
	}

	duration, err := strconv.Atoi(args[len(args)-1])
	if err != nil || duration <= 0 {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Invalid duration. Use minutes (e.g. 60)."))
		return
	}
	amount, err := strconv.Atoi(args[len(args)-2])
	if err != nil || amount <= 0 {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Invalid amount."))
		return
	}
	text := strings.Join(args[:len(args)-2], " ")

	deadline := time.Now().Add(time.Duration(duration) * time.Minute)
	bet, err := h.engine.CreateText(context.Background(), m.Author.ID, text, amount, deadline)
	if err != nil {
		h.sendBetError(s, m.ChannelID, err, "place")
		return
	}

	s.ChannelMessageSendEmbed(m.ChannelID, utils.SuccessEmbed("Bet Placed",
		fmt.Sprintf("Bet **#%d** for **%d %s** is open. React %s on the announcement to accept.",
			bet.ID, amount, config.Bot.CurrencyName, AcceptEmoji)))
}

// CmdStatBet opens a stat wager:
// !b stat_bet <category> <name> <threshold> <amount> <duration_minutes>
func (h *Handler) CmdStatBet(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 5 {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.InfoEmbed("Usage",
			"`!b stat_bet <category> <name> <threshold> <amount> <duration_minutes>`"))
		return
	}

	category, name := args[0], args[1]
	threshold, err1 := strconv.Atoi(args[2])
	amount, err2 := strconv.Atoi(args[3])
	duration, err3 := strconv.Atoi(args[4])
	if err1 != nil || err2 != nil || err3 != nil || amount <= 0 || duration <= 0 {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Threshold, amount and duration must be numbers."))
		return
	}

	deadline := time.Now().Add(time.Duration(duration) * time.Minute)
	bet, err := h.engine.CreateStat(context.Background(), m.Author.ID, category, name, threshold, amount, deadline)
	if err != nil {
		h.sendBetError(s, m.ChannelID, err, "place")
		return
	}

	s.ChannelMessageSendEmbed(m.ChannelID, utils.SuccessEmbed("Stat Bet Placed",
		fmt.Sprintf("Bet **#%d**: %s/%s reaches %d, for **%d %s**. React %s on the announcement to accept.",
			bet.ID, category, name, threshold, amount, config.Bot.CurrencyName, AcceptEmoji)))
}

// CmdVerify records a party's attestation on a due text bet:
// !b verify <bet_id> true|false
func (h *Handler) CmdVerify(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 2 {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.InfoEmbed("Usage", "`!b verify <bet_id> true|false`"))
		return
	}

	betID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Invalid bet id."))
		return
	}

	var outcome bool
	switch strings.ToLower(args[1]) {
	case "true":
		outcome = true
	case "false":
		outcome = false
	default:
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("The second argument to verify must be 'true' or 'false'."))
		return
	}

	bet, err := h.engine.Report(context.Background(), betID, m.Author.ID, outcome)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("No such bet exists."))
		return
	case errors.Is(err, bets.ErrForbidden):
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("You don't have permission to verify this bet."))
		return
	case errors.Is(err, store.ErrInvalidState):
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("This bet is not awaiting verification."))
		return
	case err != nil:
		h.log.Error("verify failed", zap.Int64("bet_id", betID), zap.Error(err))
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Error recording your answer."))
		return
	}

	if bet.Resolved {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.SuccessEmbed("Bet Settled",
			fmt.Sprintf("Bet **#%d** is settled. Check your DMs.", bet.ID)))
		return
	}
	s.ChannelMessageSendEmbed(m.ChannelID, utils.InfoEmbed("Answer Recorded",
		fmt.Sprintf("Your answer for bet **#%d** was recorded.", bet.ID)))
}

// CmdBets lists the caller's unresolved bets.
func (h *Handler) CmdBets(s *discordgo.Session, m *discordgo.MessageCreate) {
	list, err := h.store.UnresolvedBetsByUser(context.Background(), m.Author.ID)
	if err != nil {
		h.log.Error("list bets failed", zap.String("user_id", m.Author.ID), zap.Error(err))
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Could not list your bets."))
		return
	}
	if len(list) == 0 {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.InfoEmbed("Your Bets", "You have no open bets."))
		return
	}

	var sb strings.Builder
	for _, b := range list {
		sb.WriteString(fmt.Sprintf("**#%d** — %s, stake %d %s, %s\n",
			b.ID, describeBet(&b), b.Stake, config.Bot.CurrencyName, describeState(&b)))
	}
	s.ChannelMessageSendEmbed(m.ChannelID, utils.InfoEmbed("Your Bets", sb.String()))
}

func describeBet(b *models.Bet) string {
	switch b.Kind {
	case models.KindStat:
		return fmt.Sprintf("%s/%s reaches %d", b.Stat.Category, b.Stat.Name, b.Stat.Threshold)
	case models.KindText:
		return b.Text.Wager
	}
	return "unknown"
}

func describeState(b *models.Bet) string {
	switch {
	case b.AwaitingVerification():
		return "awaiting verification"
	case b.Accepted():
		return "accepted"
	default:
		return "open"
	}
}

func (h *Handler) sendBetError(s *discordgo.Session, channelID string, err error, verb string) {
	switch {
	case errors.Is(err, store.ErrInsufficientFunds):
		s.ChannelMessageSendEmbed(channelID, utils.ErrorEmbed(
			fmt.Sprintf("Insufficient %s to %s this bet.", config.Bot.CurrencyName, verb)))
	default:
		h.log.Error("bet operation failed", zap.Error(err))
		s.ChannelMessageSendEmbed(channelID, utils.ErrorEmbed("Error processing bet."))
	}
}
