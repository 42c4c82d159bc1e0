package feed

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"flight_surety/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReport(t *testing.T) {
	key, status, err := ParseReport([]byte(`{"airline":" 0xOwner ","flight":"ND1309","timestamp":1714564800,"status":20}`))
	require.NoError(t, err)
	assert.Equal(t, models.FlightKey{Airline: "0xowner", Code: "ND1309", Timestamp: 1714564800}, key)
	assert.Equal(t, models.StatusLateAirline, status)

	_, _, err = ParseReport([]byte(`{"airline":"0xowner","flight":"ND1309","status":25}`))
	assert.Error(t, err)

	_, _, err = ParseReport([]byte(`{"flight":"ND1309","status":20}`))
	assert.Error(t, err)

	_, _, err = ParseReport([]byte(`not json`))
	assert.Error(t, err)
}

func TestBoard_Consume(t *testing.T) {
	board := NewBoard()
	key := models.FlightKey{Airline: "0xowner", Code: "ND1309", Timestamp: 1}

	_, ok := board.Status(key)
	assert.False(t, ok)

	updates := make(chan Update, 2)
	updates <- Update{Key: key, Status: models.StatusOnTime}
	updates <- Update{Key: key, Status: models.StatusLateWeather}
	close(updates)

	require.NoError(t, board.Consume(context.Background(), updates))

	status, ok := board.Status(key)
	assert.True(t, ok)
	assert.Equal(t, models.StatusLateWeather, status)
}

func TestClient_Stream(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fmt.Fprintln(conn, `{"airline":"0xowner","flight":"ND1309","timestamp":7,"status":20}`)
		fmt.Fprintln(conn, `garbage`)
		fmt.Fprintln(conn, ``)
		fmt.Fprintln(conn, `{"airline":"0xowner","flight":"ND1310","timestamp":8,"status":10}`)
		time.Sleep(500 * time.Millisecond)
	}()

	client := NewClient(ln.Addr().String())
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out := make(chan Update, 4)
	go client.Stream(ctx, out)

	var got []Update
	for len(got) < 2 {
		select {
		case u := <-out:
			got = append(got, u)
		case <-ctx.Done():
			t.Fatal("timed out waiting for updates")
		}
	}

	assert.Equal(t, "ND1309", got[0].Key.Code)
	assert.Equal(t, models.StatusLateAirline, got[0].Status)
	assert.Equal(t, "ND1310", got[1].Key.Code)
	assert.Equal(t, models.StatusOnTime, got[1].Status)
}

func TestClient_StreamStopsOnCancel(t *testing.T) {
	// nothing listens here, so the client keeps retrying until cancelled
	client := NewClient("127.0.0.1:1")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := client.Stream(ctx, make(chan Update))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_OversizedLineDropsConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		// first peer never terminates its line
		first, err := ln.Accept()
		if err != nil {
			return
		}
		defer first.Close()
		first.Write(bytes.Repeat([]byte("x"), 4096))

		second, err := ln.Accept()
		if err != nil {
			return
		}
		defer second.Close()
		fmt.Fprintln(second, `{"airline":"0xowner","flight":"ND1309","timestamp":7,"status":30}`)
		<-done
	}()

	client := NewClient(ln.Addr().String())
	client.maxLineLength = 1024
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out := make(chan Update, 1)
	go client.Stream(ctx, out)

	select {
	case u := <-out:
		assert.Equal(t, "ND1309", u.Key.Code)
		assert.Equal(t, models.StatusLateWeather, u.Status)
	case <-ctx.Done():
		t.Fatal("client did not reconnect after an oversized line")
	}
}
