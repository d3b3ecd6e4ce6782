package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/agent"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/command"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/game"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/pkg/lock"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/service"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/wallet"
)

const separator = "━━━━━━━━━━━━━━━"

// shareDigits is the number of decimals shown for per-winner shares.
const shareDigits = 6

var medals = []string{"🥇", "🥈", "🥉"}

var statusLabels = map[model.WagerStatus]string{
	model.StatusCreated:               "🆕 open, waiting for players",
	model.StatusWaitingForParticipant: "⏳ open",
	model.StatusInProgress:            "⚙️ resolving",
	model.StatusCompleted:             "🏁 completed",
	model.StatusCancelled:             "🚫 cancelled",
}

func (h *WagerHandler) formatCreated(w *model.Wager) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎲 Wager #%s created\n", w.ID)
	b.WriteString(separator + "\n")
	if w.Topic != "" {
		fmt.Fprintf(&b, "📝 %s\n", w.Topic)
	}
	fmt.Fprintf(&b, "💵 Stake: %s %s each\n", w.StakeAmount.String(), h.asset)
	fmt.Fprintf(&b, "🎯 Options: %s\n", strings.Join(w.EffectiveOptions(), " / "))
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Join with: join %s <option>", w.ID)
	return b.String()
}

func (h *WagerHandler) formatJoined(w *model.Wager, participantID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ You joined wager #%s on \"%s\"\n", w.ID, w.ParticipantChoices[participantID])
	fmt.Fprintf(&b, "💵 Stake paid: %s %s\n", w.StakeAmount.String(), h.asset)
	fmt.Fprintf(&b, "👥 Players: %d\n", len(w.Participants))
	fmt.Fprintf(&b, "🏦 Pot: %s %s", w.TotalPot().String(), h.asset)
	if len(w.Participants) < 2 {
		b.WriteString("\nWaiting for at least one more player.")
	}
	return b.String()
}

func (h *WagerHandler) formatResolved(w *model.Wager) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏁 Wager #%s closed\n", w.ID)
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "🎯 Winning outcome: %s\n", w.ResolvedOutcome)

	if w.Status == model.StatusCancelled {
		b.WriteString("😶 Nobody picked the winning outcome, so the wager was cancelled.\n")
		h.writePayouts(&b, w)
		if len(w.Payouts) == 0 {
			fmt.Fprintf(&b, "The pot of %s %s stays in escrow.\n", w.TotalPot().String(), h.asset)
		}
		b.WriteString(separator)
		return b.String()
	}

	plan := h.share(w)
	fmt.Fprintf(&b, "🏦 Pot: %s %s\n", plan.TotalPot.String(), h.asset)
	fmt.Fprintf(&b, "🏆 Winners (%d) each receive %s %s\n", plan.Winners, plan.Share.StringFixed(shareDigits), h.asset)
	h.writePayouts(&b, w)
	if !w.PayoutSucceeded {
		b.WriteString("⚠️ Some payouts failed. The funds are still in escrow; contact an operator.\n")
	}
	b.WriteString(separator)
	return b.String()
}

func (h *WagerHandler) formatCancelled(w *model.Wager) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚫 Wager #%s cancelled\n", w.ID)
	if len(w.Payouts) > 0 {
		b.WriteString(separator + "\n")
		h.writePayouts(&b, w)
		b.WriteString(separator)
	} else if len(w.Participants) > 0 {
		fmt.Fprintf(&b, "Stakes (%s %s) remain in escrow.", w.TotalPot().String(), h.asset)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *WagerHandler) writePayouts(b *strings.Builder, w *model.Wager) {
	for _, p := range w.Payouts {
		verb := "won"
		if p.Kind == model.PayoutKindRefund {
			verb = "refunded"
		}
		if !p.Succeeded {
			fmt.Fprintf(b, "❌ %s %s %s %s: payment failed (%s)\n", p.Participant, verb, p.Amount.StringFixed(shareDigits), h.asset, p.Error)
			continue
		}
		fmt.Fprintf(b, "✅ %s %s %s %s\n", p.Participant, verb, p.Amount.StringFixed(shareDigits), h.asset)
		if link := wallet.ExplorerLink(h.explorerURL, p.Reference); link != "" {
			fmt.Fprintf(b, "   🔗 %s\n", link)
		}
	}
}

func (h *WagerHandler) formatWager(w *model.Wager) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎲 Wager #%s\n", w.ID)
	b.WriteString(separator + "\n")
	if w.Topic != "" {
		fmt.Fprintf(&b, "📝 %s\n", w.Topic)
	}
	fmt.Fprintf(&b, "📌 Status: %s\n", statusLabel(w.Status))
	fmt.Fprintf(&b, "👤 Creator: %s\n", w.Creator)
	fmt.Fprintf(&b, "💵 Stake: %s %s\n", w.StakeAmount.String(), h.asset)
	fmt.Fprintf(&b, "🎯 Options: %s\n", strings.Join(w.EffectiveOptions(), " / "))
	fmt.Fprintf(&b, "🏦 Pot: %s %s\n", w.TotalPot().String(), h.asset)

	if len(w.Participants) > 0 {
		fmt.Fprintf(&b, "👥 Players (%d):\n", len(w.Participants))
		for _, p := range w.Participants {
			fmt.Fprintf(&b, "  • %s → %s\n", p, w.ParticipantChoices[p])
		}
	}
	if w.ResolvedOutcome != "" {
		fmt.Fprintf(&b, "🎯 Outcome: %s\n", w.ResolvedOutcome)
	}
	if len(w.Winners) > 0 {
		plan := h.share(w)
		fmt.Fprintf(&b, "🏆 Winners: %s (%s %s each)\n", strings.Join(w.Winners, ", "), plan.Share.StringFixed(shareDigits), h.asset)
	}
	b.WriteString(separator)
	return b.String()
}

func (h *WagerHandler) formatList(wagers []*model.Wager) string {
	if len(wagers) == 0 {
		return "📭 No open wagers. Start one with " + command.UsageCreate
	}

	var b strings.Builder
	b.WriteString("📋 Open wagers\n")
	b.WriteString(separator + "\n")
	for _, w := range wagers {
		topic := w.Topic
		if topic == "" {
			topic = strings.Join(w.EffectiveOptions(), " / ")
		}
		fmt.Fprintf(&b, "#%s %s · %s %s · %d players · %s\n",
			w.ID, topic, w.StakeAmount.String(), h.asset, len(w.Participants), statusLabel(w.Status))
	}
	b.WriteString(separator)
	return b.String()
}

func (h *WagerHandler) formatTop(standings []*service.Standing) string {
	if len(standings) == 0 {
		return "📊 No completed wagers yet"
	}

	var b strings.Builder
	b.WriteString("🏆 Top winners\n")
	b.WriteString(separator + "\n")
	for i, st := range standings {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		net := st.Net.String()
		if st.Net.IsPositive() {
			net = "+" + net
		}
		fmt.Fprintf(&b, "%s %s: %s %s (%d/%d won)\n", rank, st.UserID, net, h.asset, st.Wins, st.Played)
	}
	b.WriteString(separator)
	return b.String()
}

func (h *WagerHandler) helpText() string {
	policy := h.engine.Resolver().Describe()
	return "🎲 Wager bot\n" +
		separator + "\n" +
		command.UsageCreate + " - open a wager\n" +
		command.UsageJoin + " - join and pay the stake\n" +
		command.UsageClose + " - settle (creator only)\n" +
		command.UsageCancel + " - cancel (creator only)\n" +
		command.UsageStatus + " - show a wager\n" +
		"/list - open wagers\n" +
		"/balance - your wallet\n" +
		command.UsagePay + " - send funds\n" +
		"/top - leaderboard\n" +
		separator + "\n" +
		"Resolution: " + policy
}

func formatInvalid(c command.Invalid) string {
	msg := "❌ " + c.Reason
	if c.Usage != "" {
		msg += "\nUsage: " + c.Usage
	}
	return msg
}

func statusLabel(s model.WagerStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// displayKey renders a wallet key for humans.
func displayKey(key string) string {
	switch {
	case strings.HasPrefix(key, wallet.UserKeyPrefix):
		return strings.TrimPrefix(key, wallet.UserKeyPrefix)
	case strings.HasPrefix(key, wallet.WagerKeyPrefix):
		return "wager #" + strings.TrimPrefix(key, wallet.WagerKeyPrefix)
	}
	return key
}

// errorReply maps an error to the reply shown to the user. It reports false
// for errors that are not an expected outcome of user input.
func errorReply(err error) (string, bool) {
	switch {
	case errors.Is(err, game.ErrWagerNotFound):
		return "❌ Wager not found", true
	case errors.Is(err, game.ErrInvalidState),
		errors.Is(err, game.ErrDuplicateParticipant),
		errors.Is(err, game.ErrInvalidOutcome),
		errors.Is(err, game.ErrInvalidStake),
		errors.Is(err, game.ErrInvalidOptions),
		errors.Is(err, game.ErrInvalidParticipant):
		return "❌ " + capitalize(err.Error()), true
	case errors.Is(err, ErrNotCreator):
		return "🔒 Only the wager creator can close or cancel it", true
	case errors.Is(err, ErrNotAdmin):
		return "🔒 Only operators can do that", true

	case errors.Is(err, wallet.ErrPaymentAmbiguous):
		return "⏳ The payment timed out and may still complete. Check /balance before trying again.", true
	case errors.Is(err, wallet.ErrInsufficientBalance),
		errors.Is(err, service.ErrInsufficientBalance):
		return "❌ Insufficient balance. Check /balance", true
	case errors.Is(err, game.ErrPaymentFailed):
		return "❌ Payment failed, so you were not enrolled. Please try again.", true
	case errors.Is(err, service.ErrInvalidAmount):
		return "❌ Amount must be positive", true
	case errors.Is(err, service.ErrSelfTransfer):
		return "❌ You cannot pay yourself", true
	case errors.Is(err, service.ErrInvalidRecipient):
		return "❌ Recipient is required\nUsage: " + command.UsagePay, true
	case errors.Is(err, service.ErrCreditUnsupported):
		return "❌ This wallet backend does not support credits", true
	case errors.Is(err, wallet.ErrUnavailable):
		return "⚠️ The wallet service is unavailable right now. Please try again later.", true

	case errors.Is(err, agent.ErrUpstreamUnavailable),
		errors.Is(err, agent.ErrNoDecision):
		return "⚠️ I couldn't understand that right now. You can always use " + command.UsageCreate, true
	case errors.Is(err, lock.ErrLockTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return "⏳ I'm busy with that wager, please try again in a moment.", true
	}
	return "❌ Something went wrong. Please try again later.", false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
