package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestCatalogEnglish(t *testing.T) {
	c, err := NewCatalog("")
	require.NoError(t, err)
	assert.Equal(t, language.English, c.Language())
	assert.Equal(t, "Time must be between 0:00:05 and 0:01:00.", c.Text(KeyTimeOutsideWindow, "0:00:05", "0:01:00"))
	assert.Equal(t, "Only one stopwatch is allowed per annotation.", c.Text(KeyStopwatchExists))
}

func TestCatalogMatchesLocale(t *testing.T) {
	tests := []struct {
		locale string
		want   language.Tag
	}{
		{"de-AT", language.German},
		{"de", language.German},
		{"en-GB", language.English},
		{"ja", language.English},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			c, err := NewCatalog(tt.locale)
			require.NoError(t, err)
			base, _ := c.Language().Base()
			wantBase, _ := tt.want.Base()
			assert.Equal(t, wantBase, base)
		})
	}
}

func TestCatalogBadLocale(t *testing.T) {
	_, err := NewCatalog("!!")
	assert.Error(t, err)
}

func TestCatalogNew(t *testing.T) {
	c, err := NewCatalog("en")
	require.NoError(t, err)
	n := c.New(LevelDanger, KeySaveFailed, "disk full")
	assert.Equal(t, LevelDanger, n.Level)
	assert.Equal(t, KeySaveFailed, n.Key)
	assert.Equal(t, "Failed to save the annotation: disk full", n.Message)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()
	require.NoError(t, r.Notify(ctx, Notification{Key: KeySaved}))
	require.NoError(t, r.Notify(ctx, Notification{Key: KeyInSkipSegment}))
	assert.Len(t, r.All(), 2)
	drained := r.Drain()
	assert.Equal(t, KeySaved, drained[0].Key)
	assert.Empty(t, r.All())
}

func TestWriterAndLogNotifier(t *testing.T) {
	var out bytes.Buffer
	w := &WriterNotifier{W: &out}
	require.NoError(t, w.Notify(context.Background(), Notification{Level: LevelWarning, Message: "careful"}))
	assert.Equal(t, "[warning] careful\n", out.String())

	var logs bytes.Buffer
	l := LogNotifier{Logger: slog.New(slog.NewTextHandler(&logs, nil))}
	require.NoError(t, l.Notify(context.Background(), Notification{Level: LevelDanger, Key: KeySaveFailed, Message: "boom"}))
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "notification=savefailed")
}

type failing struct{}

func (failing) Notify(context.Context, Notification) error { return errors.New("nope") }

func TestMulti(t *testing.T) {
	var r Recorder
	err := Multi{&r, failing{}}.Notify(context.Background(), Notification{Key: KeySaved})
	assert.EqualError(t, err, "nope")
	assert.Len(t, r.All(), 1)
}
