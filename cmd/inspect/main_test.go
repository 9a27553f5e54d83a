package main

import (
	"bytes"
	"dm-lab/domain"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/stretchr/testify/require"
)

type fakeStore []domain.Message

func (f fakeStore) Walk(fn func(domain.Message) error) error {
	for _, m := range f {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func TestParseFilter(t *testing.T) {
	req := require.New(t)
	f, err := parseFilter("5:9", true)
	req.NoError(err)
	req.Equal(filter{a: 5, b: 9, unreadOnly: true}, f)

	for _, raw := range []string{"5", "5:", "a:9", "0:9"} {
		_, err = parseFilter(raw, false)
		req.Error(err, raw)
	}
}

func TestRender(t *testing.T) {
	req := require.New(t)
	color.Disable()
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	store := fakeStore{
		{ID: uuid.Must(uuid.NewV7()), SenderID: 5, ReceiverID: 9, Body: "hi", CreatedAt: at},
		{ID: uuid.Must(uuid.NewV7()), SenderID: 9, ReceiverID: 5, Body: "hello", CreatedAt: at, IsRead: true},
		{ID: uuid.Must(uuid.NewV7()), SenderID: 1, ReceiverID: 2, Body: "elsewhere", CreatedAt: at},
	}

	var out bytes.Buffer
	count, err := render(&out, store, filter{a: 5, b: 9})
	req.NoError(err)
	req.Equal(2, count)
	req.Contains(out.String(), "hello")
	req.Contains(out.String(), "2026-02-03 04:05:06")
	req.NotContains(out.String(), "elsewhere")

	out.Reset()
	count, err = render(&out, store, filter{unreadOnly: true})
	req.NoError(err)
	req.Equal(2, count)
	req.NotContains(out.String(), "hello")
}
