package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/tarm/serial"

	"github.com/jengzang/ifta-backend-go/internal/service"
)

// FixHandler receives each decoded fix. Returning an error stops reading.
type FixHandler func(ctx context.Context, fix service.RawFix) error

// ReadFixes decodes NMEA lines from r until EOF or ctx is done. Lines that
// fail to parse are logged and skipped.
func ReadFixes(ctx context.Context, r io.Reader, dec *Decoder, logger zerolog.Logger, fn FixHandler) error {
	if dec == nil {
		dec = NewDecoder()
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		fix, ok, err := dec.Decode(scanner.Text())
		if err != nil {
			logger.Debug().Err(err).Msg("Skipping NMEA sentence")
			continue
		}
		if !ok {
			continue
		}
		if err := fn(ctx, fix); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to read nmea stream: %w", err)
	}
	return ctx.Err()
}

// SerialSource reads NMEA sentences from a GPS receiver on a serial port
type SerialSource struct {
	port     string
	baudRate int
	open     func(*serial.Config) (io.ReadCloser, error)
	logger   zerolog.Logger
}

// NewSerialSource creates a source for the receiver on port
func NewSerialSource(port string, baudRate int, logger zerolog.Logger) *SerialSource {
	return &SerialSource{
		port:     port,
		baudRate: baudRate,
		open: func(c *serial.Config) (io.ReadCloser, error) {
			return serial.OpenPort(c)
		},
		logger: logger.With().Str("component", "gps").Str("port", port).Logger(),
	}
}

// Run streams fixes to fn until ctx is cancelled or the port fails
func (s *SerialSource) Run(ctx context.Context, fn FixHandler) error {
	port, err := s.open(&serial.Config{Name: s.port, Baud: s.baudRate, ReadTimeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			port.Close()
		case <-done:
		}
	}()
	defer port.Close()

	s.logger.Info().Int("baud", s.baudRate).Msg("Reading GPS receiver")
	return ReadFixes(ctx, &retryReader{r: port, ctx: ctx}, NewDecoder(), s.logger, fn)
}

// retryReader hides the empty reads a serial port returns on read timeout
type retryReader struct {
	r   io.Reader
	ctx context.Context
}

func (r *retryReader) Read(p []byte) (int, error) {
	for {
		n, err := r.r.Read(p)
		if n > 0 || (err != nil && err != io.EOF) {
			return n, err
		}
		if err := r.ctx.Err(); err != nil {
			return 0, io.EOF
		}
	}
}
