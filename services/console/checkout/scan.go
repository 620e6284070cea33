package checkout

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type scanPayload struct {
	ID interface{} `json:"id"`
}

// DecodeScan extracts the cart id from a scanned payload such as {"id":"C100"}.
func DecodeScan(raw string) (string, error) {
	var p scanPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	id, ok := p.ID.(string)
	if !ok {
		return "", fmt.Errorf("%w: missing string id", ErrDecode)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty id", ErrDecode)
	}
	return id, nil
}

// Scanner is an optical or keyboard-wedge code reader. Callbacks may run on
// the scanner's own goroutine. A scanner reports io.EOF through onError when
// its input is exhausted.
type Scanner interface {
	Start(onDecoded func(payload string), onError func(err error)) error
	Stop() error
}

// ScanSession listens on a Scanner until one payload decodes to a cart id.
// Malformed payloads are logged and listening continues.
type ScanSession struct {
	scanner Scanner
	logger  *zap.Logger

	once   sync.Once
	result chan string
	closed chan error
}

func NewScanSession(scanner Scanner, logger *zap.Logger) *ScanSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanSession{
		scanner: scanner,
		logger:  logger,
		result:  make(chan string, 1),
		closed:  make(chan error, 1),
	}
}

// Await blocks until a valid id is scanned, the scanner's input ends, or ctx
// is done. The scanner is stopped in every case.
func (s *ScanSession) Await(ctx context.Context) (string, error) {
	if err := s.scanner.Start(s.onDecoded, s.onError); err != nil {
		return "", fmt.Errorf("start scanner: %w", err)
	}

	select {
	case id := <-s.result:
		return id, nil
	case err := <-s.closed:
		s.stop()
		return "", err
	case <-ctx.Done():
		s.stop()
		return "", ctx.Err()
	}
}

func (s *ScanSession) onDecoded(payload string) {
	id, err := DecodeScan(payload)
	if err != nil {
		s.logger.Warn("scan decode failed, still listening", zap.Error(err))
		return
	}
	s.once.Do(func() {
		s.stopScanner()
		s.result <- id
	})
}

func (s *ScanSession) onError(err error) {
	if errors.Is(err, io.EOF) {
		select {
		case s.closed <- err:
		default:
		}
		return
	}
	s.logger.Warn("scanner error, still listening", zap.Error(err))
}

func (s *ScanSession) stop() {
	s.once.Do(s.stopScanner)
}

func (s *ScanSession) stopScanner() {
	if err := s.scanner.Stop(); err != nil {
		s.logger.Warn("stop scanner failed", zap.Error(err))
	}
}

// LineFeed reads a line-oriented scanner device once and hands its lines to
// one listener at a time, so consecutive scan sessions share the input without
// losing lines between them. The reading goroutine lives as long as r does.
type LineFeed struct {
	lines chan string
	held  chan string
	err   error
	done  chan struct{}
}

func NewLineFeed(r io.Reader) *LineFeed {
	f := &LineFeed{lines: make(chan string), held: make(chan string, 1), done: make(chan struct{})}
	go func() {
		defer close(f.done)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				f.lines <- line
			}
		}
		f.err = sc.Err()
	}()
	return f
}

// Scanner returns a fresh Scanner for one scan session over the feed.
func (f *LineFeed) Scanner() Scanner {
	return &feedScanner{feed: f, stop: make(chan struct{})}
}

type feedScanner struct {
	feed    *LineFeed
	stop    chan struct{}
	once    sync.Once
	started atomic.Bool
}

func (s *feedScanner) Start(onDecoded func(string), onError func(error)) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("scanner already started")
	}
	go func() {
		for {
			// Stop runs inside onDecoded, so check it before taking another line.
			select {
			case <-s.stop:
				return
			default:
			}
			select {
			case line := <-s.feed.held:
				onDecoded(line)
				continue
			default:
			}
			select {
			case <-s.stop:
				return
			case line := <-s.feed.held:
				onDecoded(line)
			case line := <-s.feed.lines:
				s.deliver(line, onDecoded)
			case <-s.feed.done:
				if s.feed.err != nil {
					onError(s.feed.err)
				}
				onError(io.EOF)
				return
			}
		}
	}()
	return nil
}

// deliver hands line to the listener unless the session stopped while the
// line was in flight, in which case the next session gets it.
func (s *feedScanner) deliver(line string, onDecoded func(string)) {
	select {
	case <-s.stop:
		s.feed.held <- line
	default:
		onDecoded(line)
	}
}

func (s *feedScanner) Stop() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}
