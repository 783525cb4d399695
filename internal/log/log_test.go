package log_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"task-workflow-api/internal/log"
)

func TestCtxWithValues(t *testing.T) {
	ctx := log.CtxWithValues(context.Background(), log.Kv{"a": 1, "b": 2})
	ctx = log.CtxWithValues(ctx, log.Kv{"b": 3, "c": 4})

	assert.Equal(t, log.Kv{"a": 1, "b": 3, "c": 4}, log.ValuesFromCtx(ctx))
	assert.Equal(t, log.Kv{}, log.ValuesFromCtx(context.Background()))
}

func TestNoopKeepsContextValues(t *testing.T) {
	ctx := log.Noop.SetValuesOnCtx(context.Background(), log.Kv{"corr": "x"})

	assert.Equal(t, log.Kv{"corr": "x"}, log.ValuesFromCtx(ctx))
	assert.Equal(t, log.Noop, log.Noop.WithValues(log.Kv{"k": "v"}))
}
