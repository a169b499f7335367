package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/catalog-steward/internal/model"
)

func TestPrompterWaitForEnter(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("\n"), &out)

	require.NoError(t, p.WaitForEnter(context.Background(), "Press ENTER to close... "))
	assert.Contains(t, out.String(), "Press ENTER to close")
}

func TestPrompterWaitForEnterCanceled(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("\n"), &out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.WaitForEnter(ctx, "Press ENTER... ")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrompterWaitForEnterClosedInput(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), &bytes.Buffer{})

	err := p.WaitForEnter(context.Background(), "Press ENTER... ")
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.Canceled)
}

func TestPrompterWaitForLogin(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("\n"), &out)

	require.NoError(t, p.WaitForLogin(context.Background()))
	for _, want := range []string{"Log in manually now", "MFA", "dashboard"} {
		assert.Contains(t, out.String(), want)
	}
}

func TestPrompterConfirmLive(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("\n"), &out)

	require.NoError(t, p.ConfirmLive(context.Background()))
	assert.Contains(t, out.String(), "Ready to start live processing")
}

func TestPrompterConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full word", input: "YES\n", want: true},
		{name: "no", input: "n\n"},
		{name: "empty defaults to no", input: "\n"},
		{name: "anything else", input: "maybe\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)

			got, err := p.Confirm(context.Background(), "Apply corrections?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestPrompterPause(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("\n"), &out)

	outcome := model.Outcome{
		Kind:        model.OutcomeFlagged,
		Description: "SAKE JUNMAI 720ML",
		Notes:       "no category",
	}
	require.NoError(t, p.Pause(context.Background(), outcome))

	assert.Contains(t, out.String(), "flagged")
	assert.Contains(t, out.String(), "SAKE JUNMAI 720ML")
	assert.Contains(t, out.String(), "no category")
	assert.Contains(t, out.String(), "next item")
}
