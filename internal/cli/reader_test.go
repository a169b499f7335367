package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonBlockingReader_ReadLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "enter", input: "\n", want: ""},
		{name: "answer", input: "yes\n", want: "yes"},
		{name: "padded answer", input: "  y \r\n", want: "y"},
		{name: "last line without newline", input: "n", want: "n"},
		{name: "closed input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewNonBlockingReader(strings.NewReader(tt.input)).ReadLine(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, io.EOF)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNonBlockingReader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNonBlockingReader(strings.NewReader("y\n")).ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)
}

func TestNonBlockingReader_CanceledWhileWaiting(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() {
		_ = pw.Close()
		_ = pr.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewNonBlockingReader(pr).ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNonBlockingReader_SuccessiveAnswers(t *testing.T) {
	nbr := NewNonBlockingReader(strings.NewReader("\ny\nn\n"))
	ctx := context.Background()

	for _, want := range []string{"", "y", "n"} {
		got, err := nbr.ReadLine(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
