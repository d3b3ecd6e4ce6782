package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
)

// WagerLister returns every stored wager.
type WagerLister interface {
	List(ctx context.Context) ([]*model.Wager, error)
}

// Standing is one leaderboard row.
type Standing struct {
	UserID string
	Net    decimal.Decimal
	Wins   int
	Played int
}

// RankingService builds leaderboards from settled wagers.
type RankingService struct {
	wagers WagerLister
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(wagers WagerLister) *RankingService {
	return &RankingService{wagers: wagers}
}

// TopWinners returns participants ordered by net winnings over completed
// wagers. Net is successful payouts received minus stakes paid.
func (s *RankingService) TopWinners(ctx context.Context, limit int) ([]*Standing, error) {
	wagers, err := s.wagers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wagers: %w", err)
	}

	byUser := make(map[string]*Standing)
	get := func(id string) *Standing {
		st, ok := byUser[id]
		if !ok {
			st = &Standing{UserID: id, Net: decimal.Zero}
			byUser[id] = st
		}
		return st
	}

	for _, w := range wagers {
		if w.Status != model.StatusCompleted {
			continue
		}
		for _, p := range w.Participants {
			st := get(p)
			st.Played++
			st.Net = st.Net.Sub(w.StakeAmount)
		}
		for _, p := range w.Winners {
			get(p).Wins++
		}
		for _, po := range w.Payouts {
			if po.Succeeded {
				st := get(po.Participant)
				st.Net = st.Net.Add(po.Amount)
			}
		}
	}

	out := make([]*Standing, 0, len(byUser))
	for _, st := range byUser {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Net.Cmp(out[j].Net); c != 0 {
			return c > 0
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].UserID < out[j].UserID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
