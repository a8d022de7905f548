package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookiebot/internal/store"
	"bookiebot/pkg/config"
	"bookiebot/pkg/utils"
)

// CmdCoins tells a user how many coins they have.
func (h *Handler) CmdCoins(s *discordgo.Session, m *discordgo.MessageCreate) {
	user, err := h.store.GetOrCreateUser(context.Background(), m.Author.ID)
	if err != nil {
		h.log.Error("get user failed", zap.String("user_id", m.Author.ID), zap.Error(err))
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Could not fetch your balance."))
		return
	}
	s.ChannelMessageSendEmbed(m.ChannelID, utils.GoldEmbed("Balance",
		fmt.Sprintf("You have **%d %s**.", user.Balance, config.Bot.CurrencyName)))
}

// CmdBeg hands out a small free grant on a cooldown.
func (h *Handler) CmdBeg(s *discordgo.Session, m *discordgo.MessageCreate) {
	ctx := context.Background()
	if _, err := h.store.GetOrCreateUser(ctx, m.Author.ID); err != nil {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Error processing your plea."))
		return
	}

	cooldown := time.Duration(config.Economy.BegCooldownMinutes) * time.Minute
	granted, err := h.store.ClaimGrant(ctx, m.Author.ID, config.Economy.BegAmount, time.Now(), cooldown)
	if err != nil {
		h.log.Error("beg failed", zap.String("user_id", m.Author.ID), zap.Error(err))
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Error processing your plea."))
		return
	}
	if !granted {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed(
			fmt.Sprintf("You already begged recently. Try again in up to %d minutes.",
				config.Economy.BegCooldownMinutes)))
		return
	}
	s.ChannelMessageSendEmbed(m.ChannelID, utils.SuccessEmbed("Alms",
		fmt.Sprintf("Someone took pity on you: **+%d %s**.", config.Economy.BegAmount, config.Bot.CurrencyName)))
}

// CmdPay transfers coins to another user: !b pay @user <amount>
func (h *Handler) CmdPay(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(m.Mentions) == 0 || len(args) < 2 {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.InfoEmbed("Usage", "`!b pay @user <amount>`"))
		return
	}

	toUser := m.Mentions[0]
	if toUser.ID == m.Author.ID {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("You cannot pay yourself."))
		return
	}

	amount := 0
	for _, arg := range args {
		if val, err := strconv.Atoi(arg); err == nil {
			amount = val
			break
		}
	}
	if amount <= 0 {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Invalid amount."))
		return
	}

	err := h.pay(context.Background(), m.Author.ID, toUser.ID, amount)
	if errors.Is(err, store.ErrInsufficientFunds) {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Insufficient funds."))
		return
	}
	if err != nil {
		h.log.Error("transfer failed", zap.Error(err))
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Transaction error."))
		return
	}

	s.ChannelMessageSendEmbed(m.ChannelID, utils.SuccessEmbed("Transfer Successful",
		fmt.Sprintf("You sent **%d %s** to **%s**.", amount, config.Bot.CurrencyName, toUser.Username)))
}

// pay ensures both parties exist, then transfers. A recipient who has
// never interacted gets their record created here.
func (h *Handler) pay(ctx context.Context, fromID, toID string, amount int) error {
	if _, err := h.store.GetOrCreateUser(ctx, fromID); err != nil {
		return err
	}
	if _, err := h.store.GetOrCreateUser(ctx, toID); err != nil {
		return err
	}
	return h.store.TransferCoins(ctx, fromID, toID, amount)
}

// CmdAPIKey creates an API key for the caller and DMs it to them.
func (h *Handler) CmdAPIKey(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	name := "default"
	if len(args) > 0 {
		name = args[0]
	}

	key := uuid.New().String()
	if err := h.store.CreateAPIKey(context.Background(), key, m.Author.ID, name); err != nil {
		h.log.Error("create api key failed", zap.Error(err))
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Could not create API key."))
		return
	}

	ch, err := s.UserChannelCreate(m.Author.ID)
	if err == nil {
		s.ChannelMessageSend(ch.ID, fmt.Sprintf("Your API key (%s): `%s`", name, key))
	}
	s.ChannelMessageSendEmbed(m.ChannelID, utils.SuccessEmbed("API Key Created", "Check your DMs."))
}

// CmdWebhook registers a webhook URL notified when the caller's bets
// resolve: !b webhook <url>
func (h *Handler) CmdWebhook(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 1 {
		s.ChannelMessageSendEmbed(m.ChannelID, utils.InfoEmbed("Usage", "`!b webhook <url>`"))
		return
	}
	if err := h.store.SetWebhook(context.Background(), m.Author.ID, args[0]); err != nil {
		h.log.Error("set webhook failed", zap.Error(err))
		s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Could not save webhook."))
		return
	}
	s.ChannelMessageSendEmbed(m.ChannelID, utils.SuccessEmbed("Webhook Saved",
		"You will be notified when your bets resolve."))
}

// CmdHelp lists available commands.
func (h *Handler) CmdHelp(s *discordgo.Session, m *discordgo.MessageCreate) {
	help := "`!b coins` — your balance\n" +
		"`!b beg` — small free grant, on cooldown\n" +
		"`!b pay @user <amount>` — send coins\n" +
		"`!b text_bet <text> <amount> <minutes>` — open a free-text bet\n" +
		"`!b stat_bet <category> <name> <threshold> <amount> <minutes>` — open a stat bet\n" +
		"`!b verify <bet_id> true|false` — attest a due text bet\n" +
		"`!b bets` — your open bets\n" +
		"`!b apikey [name]` — create an API key\n" +
		"`!b webhook <url>` — resolution webhook\n\n" +
		fmt.Sprintf("React %s on a bet announcement to accept it.", AcceptEmoji)
	s.ChannelMessageSendEmbed(m.ChannelID, utils.InfoEmbed(config.Bot.BotName+" Commands", help))
}
