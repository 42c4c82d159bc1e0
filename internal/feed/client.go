package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"flight_surety/internal/models"
)

// Report is one line of the status feed
type Report struct {
	Airline   string `json:"airline"`
	Flight    string `json:"flight"`
	Timestamp int64  `json:"timestamp"`
	Status    int    `json:"status"`
}

// ParseReport decodes and validates a feed line
func ParseReport(line []byte) (models.FlightKey, models.FlightStatus, error) {
	var r Report
	if err := json.Unmarshal(line, &r); err != nil {
		return models.FlightKey{}, 0, fmt.Errorf("invalid report: %w", err)
	}
	if r.Airline == "" || strings.TrimSpace(r.Flight) == "" {
		return models.FlightKey{}, 0, fmt.Errorf("report missing airline or flight")
	}
	status, err := models.ParseFlightStatus(r.Status)
	if err != nil {
		return models.FlightKey{}, 0, err
	}
	key := models.FlightKey{
		Airline:   models.NormalizeAddress(r.Airline),
		Code:      strings.TrimSpace(r.Flight),
		Timestamp: r.Timestamp,
	}
	return key, status, nil
}

// Update is a parsed report
type Update struct {
	Key    models.FlightKey
	Status models.FlightStatus
}

const defaultMaxLineLength = 64 * 1024

// Client streams newline-delimited JSON status reports from a TCP source
type Client struct {
	conn          net.Conn
	reader        *bufio.Reader
	pending       []byte
	addr          string
	maxRetries    int
	retryBackoff  time.Duration
	maxBackoff    time.Duration
	maxLineLength int // longer lines drop the connection
}

func NewClient(addr string) *Client {
	return &Client{
		addr:          addr,
		maxRetries:    -1, // -1 means infinite retries
		retryBackoff:  1 * time.Second,
		maxBackoff:    30 * time.Second,
		maxLineLength: defaultMaxLineLength,
	}
}

func (c *Client) connect(ctx context.Context) error {
	dialer := net.Dialer{
		Timeout: 5 * time.Second,
	}

	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.pending = c.pending[:0]
	return nil
}

// Stream sends parsed updates to out, reconnecting with exponential backoff,
// until the context is cancelled or maxRetries is exceeded
func (c *Client) Stream(ctx context.Context, out chan<- Update) error {
	retryCount := 0
	backoff := c.retryBackoff

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.conn == nil {
			if err := c.connect(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				retryCount++
				if c.maxRetries > 0 && retryCount > c.maxRetries {
					return fmt.Errorf("max retries (%d) exceeded", c.maxRetries)
				}
				slog.Warn("Failed to connect to status feed", "addr", c.addr, "retry", retryCount, "error", err)

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > c.maxBackoff {
					backoff = c.maxBackoff
				}
				continue
			}
			retryCount = 0
			backoff = c.retryBackoff
			slog.Info("Connected to status feed", "addr", c.addr)
		}

		err := c.readReports(ctx, out)
		if err != nil && ctx.Err() == nil {
			slog.Warn("Status feed connection error, reconnecting", "error", err)
			c.closeConnection()
			continue
		}

		return ctx.Err()
	}
}

func (c *Client) readReports(ctx context.Context, out chan<- Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		chunk, err := c.reader.ReadSlice('\n')
		c.pending = append(c.pending, chunk...)
		if len(c.pending) > c.maxLineLength {
			return fmt.Errorf("report exceeds %d bytes", c.maxLineLength)
		}
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, bufio.ErrBufferFull):
				continue
			case errors.As(err, &netErr) && netErr.Timeout():
				// the partial line stays in pending
				continue
			case errors.Is(err, io.EOF):
				return fmt.Errorf("connection closed")
			default:
				return fmt.Errorf("failed to read report: %w", err)
			}
		}

		line := bytes.TrimSpace(c.pending)
		c.pending = c.pending[:0]
		if len(line) == 0 {
			continue
		}

		key, status, err := ParseReport(line)
		if err != nil {
			slog.Debug("Failed to parse status report", "error", err)
			continue
		}

		select {
		case out <- Update{Key: key, Status: status}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) closeConnection() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
		c.pending = nil
	}
}

// Close closes the connection
func (c *Client) Close() error {
	c.closeConnection()
	return nil
}
