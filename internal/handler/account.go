package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/command"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/wallet"
)

func (h *WagerHandler) handleBalance(ctx context.Context, senderID string) (string, error) {
	acc, err := h.accounts.GetAccount(ctx, senderID, recentTransfers)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("💰 Wallet\n")
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "📬 Address: %s\n", acc.Address)
	fmt.Fprintf(&b, "💵 Balance: %s %s\n", acc.Balance.String(), h.asset)

	if len(acc.Recent) > 0 {
		b.WriteString(separator + "\n")
		b.WriteString("🧾 Recent transfers\n")
		key := wallet.UserKey(senderID)
		for _, r := range acc.Recent {
			sign, other := "-", r.To
			if r.To == key {
				sign, other = "+", r.From
			}
			fmt.Fprintf(&b, "%s%s %s %s %s\n", sign, r.Amount.String(), h.asset, directionWord(sign), displayKey(other))
		}
	}
	b.WriteString(separator)
	return b.String(), nil
}

func (h *WagerHandler) handlePay(ctx context.Context, senderID string, c command.Pay) (string, error) {
	res, err := h.transfers.Transfer(ctx, senderID, c.Recipient, c.Amount)
	if err != nil {
		return "", err
	}

	msg := fmt.Sprintf("✅ Sent %s %s to %s", c.Amount.String(), h.asset, c.Recipient)
	if link := wallet.ExplorerLink(h.explorerURL, res.Reference); link != "" {
		msg += "\n🔗 " + link
	}
	return msg, nil
}

func (h *WagerHandler) handleCredit(ctx context.Context, senderID string, c command.Credit) (string, error) {
	if !h.isAdmin(senderID) {
		return "", ErrNotAdmin
	}
	bal, err := h.accounts.Credit(ctx, c.Recipient, c.Amount)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"✅ Credited %s %s to %s\n💰 New balance: %s %s",
		c.Amount.String(), h.asset, c.Recipient, bal.String(), h.asset,
	), nil
}

func (h *WagerHandler) handleTop(ctx context.Context) (string, error) {
	standings, err := h.ranking.TopWinners(ctx, topLimit)
	if err != nil {
		return "", err
	}
	return h.formatTop(standings), nil
}

func directionWord(sign string) string {
	if sign == "+" {
		return "from"
	}
	return "to"
}
