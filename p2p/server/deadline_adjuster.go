package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

//go:generate mockgen -typed -package=mocks -destination=./mocks/mocks.go -source=./deadline_adjuster.go

var errHardTimeout = errors.New("hard timeout")

type peerStream interface {
	io.ReadWriteCloser
	SetDeadline(time.Time) error
}

// deadlineAdjuster moves the stream deadline forward on every read and write
// so that the stream only times out when idle, never past the hard deadline.
// Streams that can't set deadlines are used as is; callers bound them with a
// context instead.
type deadlineAdjuster struct {
	peerStream
	logger       *zap.Logger
	clock        clockwork.Clock
	timeout      time.Duration
	hardDeadline time.Time
	deadline     time.Time
	noDeadline   bool
	read         int
	written      int
}

func newDeadlineAdjuster(
	stream peerStream,
	logger *zap.Logger,
	clock clockwork.Clock,
	timeout, hardTimeout time.Duration,
) *deadlineAdjuster {
	return &deadlineAdjuster{
		peerStream:   stream,
		logger:       logger,
		clock:        clock,
		timeout:      timeout,
		hardDeadline: clock.Now().Add(hardTimeout),
	}
}

func (dadj *deadlineAdjuster) adjust() error {
	now := dadj.clock.Now()
	if !now.Before(dadj.hardDeadline) {
		return errHardTimeout
	}
	if dadj.noDeadline {
		return nil
	}
	deadline := now.Add(dadj.timeout)
	if deadline.After(dadj.hardDeadline) {
		deadline = dadj.hardDeadline
	}
	if deadline.Equal(dadj.deadline) {
		return nil
	}
	dadj.deadline = deadline
	if err := dadj.peerStream.SetDeadline(deadline); err != nil {
		dadj.noDeadline = true
		dadj.logger.Debug("stream deadlines are not supported", zap.Error(err))
	}
	return nil
}

func (dadj *deadlineAdjuster) Read(p []byte) (int, error) {
	if err := dadj.adjust(); err != nil {
		return 0, err
	}
	n, err := dadj.peerStream.Read(p)
	dadj.read += n
	return n, dadj.annotate(err)
}

func (dadj *deadlineAdjuster) Write(p []byte) (int, error) {
	if err := dadj.adjust(); err != nil {
		return 0, err
	}
	n, err := dadj.peerStream.Write(p)
	dadj.written += n
	return n, dadj.annotate(err)
}

func (dadj *deadlineAdjuster) annotate(err error) error {
	var nerr net.Error
	if err == nil || !errors.As(err, &nerr) || !nerr.Timeout() {
		return err
	}
	return fmt.Errorf("%d bytes read, %d bytes written, timeout %v: %w",
		dadj.read, dadj.written, dadj.timeout, err)
}
