package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/agent"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/command"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/game"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
)

func (h *WagerHandler) handleCreate(ctx context.Context, senderID string, c command.Create) (string, error) {
	w, err := h.engine.CreateWager(ctx, senderID, c.Amount, game.CreateOptions{
		Topic:   c.Topic,
		Options: c.Options,
	})
	if err != nil {
		return "", err
	}
	return h.formatCreated(w), nil
}

func (h *WagerHandler) handleNaturalLanguage(ctx context.Context, msg Message, c command.NaturalLanguage) (string, error) {
	if h.parser == nil {
		return "🤔 I didn't understand that. Send /help to see what I can do.", nil
	}

	req, err := h.parser.Parse(ctx, msg.SenderID, c.Text)
	if err != nil {
		var rej *agent.RejectionError
		if errors.As(err, &rej) {
			reason := rej.Reason
			if reason == "" {
				reason = "it doesn't read like a bet"
			}
			return fmt.Sprintf(
				"🤔 That doesn't look like a wager: %s\n\n"+
					"Try something like \"bet 5 USDC that it rains tomorrow\" or %s",
				reason, command.UsageCreate,
			), nil
		}
		return "", err
	}

	return h.handleCreate(ctx, msg.SenderID, command.Create{
		Amount:  req.Amount,
		Options: req.Options[:],
		Topic:   req.Topic,
	})
}

func (h *WagerHandler) handleJoin(ctx context.Context, senderID string, c command.Join) (string, error) {
	w, err := h.engine.JoinWager(ctx, c.WagerID, senderID, c.Outcome)
	if err != nil {
		return "", err
	}
	return h.formatJoined(w, senderID), nil
}

func (h *WagerHandler) handleClose(ctx context.Context, senderID string, c command.Close) (string, error) {
	if err := h.authorize(ctx, c.WagerID, senderID); err != nil {
		return "", err
	}
	w, err := h.engine.ResolveWager(ctx, c.WagerID, c.Outcome)
	if err != nil {
		return "", err
	}
	return h.formatResolved(w), nil
}

func (h *WagerHandler) handleCancel(ctx context.Context, senderID string, c command.Cancel) (string, error) {
	if err := h.authorize(ctx, c.WagerID, senderID); err != nil {
		return "", err
	}
	w, err := h.engine.CancelWager(ctx, c.WagerID)
	if err != nil {
		return "", err
	}
	return h.formatCancelled(w), nil
}

func (h *WagerHandler) handleStatus(ctx context.Context, c command.Status) (string, error) {
	w, err := h.engine.GetWager(ctx, c.WagerID)
	if err != nil {
		return "", err
	}
	return h.formatWager(w), nil
}

func (h *WagerHandler) handleList(ctx context.Context) (string, error) {
	wagers, err := h.engine.ListActiveWagers(ctx)
	if err != nil {
		return "", err
	}
	return h.formatList(wagers), nil
}

// authorize allows the wager's creator and operators to close or cancel it.
func (h *WagerHandler) authorize(ctx context.Context, wagerID, senderID string) error {
	w, err := h.engine.GetWager(ctx, wagerID)
	if err != nil {
		return err
	}
	if w.Creator != senderID && !h.isAdmin(senderID) {
		return fmt.Errorf("%w: wager %s belongs to %s", ErrNotCreator, w.ID, w.Creator)
	}
	return nil
}

func (h *WagerHandler) share(w *model.Wager) game.PayoutPlan {
	return game.ComputePayout(w.StakeAmount, len(w.Participants), len(w.Winners), h.engine.Precision())
}
