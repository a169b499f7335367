package surface

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("target closed")

	tests := []struct {
		name          string
		err           error
		wantKind      Kind
		wantTransient bool
		wantNotFound  bool
	}{
		{name: "transient", err: Transient("read item", cause), wantKind: KindTransient, wantTransient: true},
		{name: "not found", err: NotFound("search", cause), wantKind: KindNotFound, wantNotFound: true},
		{name: "unavailable", err: Unavailable("approve", cause), wantKind: KindUnavailable},
		{name: "wrapped transient", err: fmt.Errorf("processing: %w", Transient("read item", cause)), wantKind: KindTransient, wantTransient: true},
		{name: "foreign error", err: cause, wantKind: KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKind, KindOf(tt.err))
			assert.Equal(t, tt.wantTransient, IsTransient(tt.err))
			assert.Equal(t, tt.wantNotFound, IsNotFound(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := Transient("read item", errors.New("target closed"))
	assert.Equal(t, "surface read item: transient: target closed", err.Error())
	assert.ErrorIs(t, err, err.Err)
	assert.Equal(t, "surface save: unavailable", (&Error{Op: "save"}).Error())
}

type namedSurface struct {
	Surface
	name string
}

func TestHandle_Reacquire(t *testing.T) {
	first := &namedSurface{name: "first"}
	second := &namedSurface{name: "second"}

	calls := 0
	h := NewHandle(first, AcquirerFunc(func(_ context.Context) (Surface, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("no product page")
		}
		return second, nil
	}))

	assert.Same(t, first, h.Current())

	_, err := h.Reacquire(context.Background())
	require.Error(t, err)
	assert.Same(t, first, h.Current(), "failed reacquire keeps the previous surface")

	got, err := h.Reacquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Same(t, second, h.Current())
}

func TestHandle_NoAcquirer(t *testing.T) {
	h := NewHandle(nil, nil)
	_, err := h.Reacquire(context.Background())
	require.Error(t, err)
	assert.Nil(t, h.Current())
}
