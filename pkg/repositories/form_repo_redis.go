package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/swap"
	"github.com/redis/go-redis/v9"
)

const (
	formKeyPrefix     = "swap:form:"
	maxUpdateAttempts = 5
)

var ErrConcurrentUpdate = errors.New("form changed concurrently")

// FormRepositoryRedis stores forms as JSON with a sliding TTL. Updates use WATCH/MULTI so two
// replicas editing the same form retry against the newer state instead of overwriting it.
type FormRepositoryRedis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFormRepositoryRedis(client *redis.Client, ttl time.Duration) FormRepository {
	return &FormRepositoryRedis{client: client, ttl: ttl}
}

func formKey(id uuid.UUID) string {
	return formKeyPrefix + id.String()
}

func (r *FormRepositoryRedis) Create(ctx context.Context, form swap.Form) error {
	if form.ID == uuid.Nil {
		return errors.New("form id cannot be nil")
	}
	b, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	ok, err := r.client.SetNX(ctx, formKey(form.ID), b, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("form %s already exists", form.ID)
	}
	return nil
}

func (r *FormRepositoryRedis) FindByID(ctx context.Context, id uuid.UUID) (swap.Form, error) {
	return decodeForm(r.client.Get(ctx, formKey(id)).Bytes())
}

func (r *FormRepositoryRedis) Update(ctx context.Context, id uuid.UUID, fn func(*swap.Form) error) (swap.Form, error) {
	key := formKey(id)
	var updated swap.Form

	txf := func(tx *redis.Tx) error {
		form, err := decodeForm(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		if err := fn(&form); err != nil {
			return err
		}
		b, err := json.Marshal(form)
		if err != nil {
			return fmt.Errorf("encode form: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, r.ttl)
			return nil
		})
		if err == nil {
			updated = form
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return swap.Form{}, err
		}
	}
	return swap.Form{}, ErrConcurrentUpdate
}

func (r *FormRepositoryRedis) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.client.Del(ctx, formKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFormNotFound
	}
	return nil
}

func decodeForm(b []byte, err error) (swap.Form, error) {
	if errors.Is(err, redis.Nil) {
		return swap.Form{}, ErrFormNotFound
	}
	if err != nil {
		return swap.Form{}, err
	}
	var form swap.Form
	if err := json.Unmarshal(b, &form); err != nil {
		return swap.Form{}, fmt.Errorf("decode form: %w", err)
	}
	return form, nil
}
