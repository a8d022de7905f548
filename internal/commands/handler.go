package commands

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"bookiebot/internal/bets"
	"bookiebot/internal/metrics"
	"bookiebot/internal/store"
)

// Handler dispatches prefixed chat commands to the settlement engine
// and ledger.
type Handler struct {
	store  store.Store
	engine *bets.Engine
	prefix string
	log    *zap.Logger
}

// New creates the command handler. prefix is matched without the
// trailing space, e.g. "!b".
func New(s store.Store, engine *bets.Engine, prefix string, log *zap.Logger) *Handler {
	return &Handler{store: s, engine: engine, prefix: prefix, log: log}
}

func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}
	if !strings.HasPrefix(m.Content, h.prefix+" ") {
		return
	}

	args := strings.Fields(m.Content[len(h.prefix)+1:])
	if len(args) == 0 {
		return
	}
	command := strings.ToLower(args[0])
	args = args[1:]

	metrics.CommandsTotal.WithLabelValues(command).Inc()

	switch command {
	case "help", "ajuda":
		h.CmdHelp(s, m)
	case "coins", "balance", "money":
		h.CmdCoins(s, m)
	case "beg":
		h.CmdBeg(s, m)
	case "pay", "transfer":
		h.CmdPay(s, m, args)
	case "text_bet", "bet":
		h.CmdTextBet(s, m, args)
	case "stat_bet":
		h.CmdStatBet(s, m, args)
	case "verify":
		h.CmdVerify(s, m, args)
	case "bets":
		h.CmdBets(s, m)
	case "apikey":
		h.CmdAPIKey(s, m, args)
	case "webhook":
		h.CmdWebhook(s, m, args)
	}
}
