package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/model"
	"github.com/raihankhan-rk/xmpt-cdp-quickstart/internal/store"
)

// WagerRepository handles wager persistence.
type WagerRepository struct {
	store store.Store
}

// NewWagerRepository creates a new WagerRepository instance.
func NewWagerRepository(s store.Store) *WagerRepository {
	return &WagerRepository{store: s}
}

// NextID allocates a fresh wager id from the store counter.
func (r *WagerRepository) NextID(ctx context.Context) (string, error) {
	n, err := r.store.Incr(ctx, wagerCounter)
	if err != nil {
		return "", fmt.Errorf("failed to allocate wager id: %w", err)
	}
	return strconv.FormatInt(n, 10), nil
}

// Get retrieves a wager by id.
// Returns ErrWagerNotFound if the wager does not exist.
func (r *WagerRepository) Get(ctx context.Context, id string) (*model.Wager, error) {
	data, err := r.store.Get(ctx, wagerPrefix+id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWagerNotFound
		}
		return nil, fmt.Errorf("failed to get wager: %w", err)
	}

	w, err := decodeWager(data)
	if err != nil {
		return nil, fmt.Errorf("wager %s: %w", id, err)
	}
	return w, nil
}

// Save writes the wager, stamping the current schema version.
func (r *WagerRepository) Save(ctx context.Context, w *model.Wager) error {
	if w.ID == "" {
		return fmt.Errorf("failed to save wager: empty id")
	}

	rec := w.Clone()
	rec.Schema = model.SchemaVersion
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode wager: %w", err)
	}

	if err := r.store.Set(ctx, wagerPrefix+w.ID, data); err != nil {
		return fmt.Errorf("failed to save wager: %w", err)
	}
	return nil
}

// List returns every wager ordered by id. Records that cannot be decoded
// are logged and skipped.
func (r *WagerRepository) List(ctx context.Context) ([]*model.Wager, error) {
	keys, err := r.store.List(ctx, wagerPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list wagers: %w", err)
	}

	wagers := make([]*model.Wager, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimPrefix(key, wagerPrefix)
		w, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrWagerNotFound) {
				continue
			}
			log.Warn().Err(err).Str("wager_id", id).Msg("Skipping unreadable wager record")
			continue
		}
		wagers = append(wagers, w)
	}

	sort.Slice(wagers, func(i, j int) bool {
		return lessID(wagers[i].ID, wagers[j].ID)
	})
	return wagers, nil
}

// ListActive returns wagers that are not COMPLETED or CANCELLED.
func (r *WagerRepository) ListActive(ctx context.Context) ([]*model.Wager, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]*model.Wager, 0, len(all))
	for _, w := range all {
		if !w.IsTerminal() {
			active = append(active, w)
		}
	}
	return active, nil
}

func decodeWager(data []byte) (*model.Wager, error) {
	var w model.Wager
	if err := decode(data, &w); err != nil {
		return nil, err
	}

	status, ok := model.ParseStatus(string(w.Status))
	if !ok {
		return nil, fmt.Errorf("unknown wager status %q", w.Status)
	}
	w.Status = status
	w.Schema = model.SchemaVersion
	if w.ParticipantChoices == nil {
		w.ParticipantChoices = make(map[string]string)
	}
	return &w, nil
}

// lessID orders numeric ids numerically and falls back to string order.
func lessID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
