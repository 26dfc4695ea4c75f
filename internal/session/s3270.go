package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/timvw/screen-patrol/internal/logging"
	"github.com/timvw/screen-patrol/internal/model"
)

// ErrBroken is returned once a reply was abandoned mid-stream and the
// command/reply pairing with the emulator can no longer be trusted.
var ErrBroken = errors.New("s3270 session out of sync")

// S3270 drives the s3270 scripting emulator over its stdin/stdout protocol.
//
// Every command is a single line. The reply is zero or more "data: " lines,
// the status line, and a final "ok" or "error".
type S3270 struct {
	mu     sync.Mutex
	w      io.Writer
	r      *bufio.Reader
	closer func() error
	logger *zap.Logger
	status model.Status
	broken bool
}

// reply is one parsed response block.
type reply struct {
	data   []string
	status string
	ok     bool
}

// StartS3270 launches the emulator binary at path and connects it to host.
func StartS3270(ctx context.Context, path, host string, logger *zap.Logger) (*S3270, error) {
	cmd := exec.Command(path, "-xrm", "s3270.unlockDelay: False")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("s3270 stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("s3270 stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", path, err)
	}

	s := newS3270(stdout, stdin, func() error {
		stdin.Close()
		return cmd.Wait()
	}, logger)

	if err := s.Connect(ctx, host); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newS3270(r io.Reader, w io.Writer, closer func() error, logger *zap.Logger) *S3270 {
	return &S3270{
		w:      w,
		r:      bufio.NewReader(r),
		closer: closer,
		logger: logging.Or(logger),
	}
}

// Name returns "s3270".
func (s *S3270) Name() string { return "s3270" }

// Connect connects to host unless the emulator already is connected.
func (s *S3270) Connect(ctx context.Context, host string) error {
	if _, err := s.run(ctx, "Query(ConnectionState)"); err != nil {
		return err
	}
	if s.lastStatus().Connected() {
		return nil
	}
	if _, err := s.run(ctx, fmt.Sprintf("Connect(%s)", host)); err != nil {
		return fmt.Errorf("connecting to %s: %w", host, err)
	}
	if _, err := s.run(ctx, CmdWaitField); err != nil {
		return fmt.Errorf("waiting for %s: %w", host, err)
	}
	return nil
}

// Dimensions returns the rows and columns reported in the status line.
func (s *S3270) Dimensions(ctx context.Context) (int, int, error) {
	if st := s.lastStatus(); st.Rows > 0 {
		return st.Rows, st.Cols, nil
	}
	if _, err := s.run(ctx, "Query(ScreenCurSize)"); err != nil {
		return 0, 0, err
	}
	st := s.lastStatus()
	return st.Rows, st.Cols, nil
}

// Snapshot captures the rendered screen and the raw buffer.
func (s *S3270) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	ascii, err := s.run(ctx, CmdAscii)
	if err != nil {
		return nil, err
	}
	buffer, err := s.run(ctx, CmdReadBuffer)
	if err != nil {
		return nil, err
	}
	st := s.lastStatus()
	return &model.Snapshot{
		Rows:       st.Rows,
		Cols:       st.Cols,
		Ascii:      ascii.data,
		Buffer:     buffer.data,
		Status:     buffer.status,
		CapturedAt: time.Now(),
	}, nil
}

// Exec runs command and waits for the next input field.
func (s *S3270) Exec(ctx context.Context, command string) error {
	if _, err := s.run(ctx, command); err != nil {
		return err
	}
	_, err := s.run(ctx, CmdWaitField)
	return err
}

// Close stops the emulator.
func (s *S3270) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	if !s.broken {
		fmt.Fprintln(s.w, "Quit")
	}
	closer := s.closer
	s.closer = nil
	return closer()
}

func (s *S3270) lastStatus() model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// run sends one command and reads its reply. A cancelled context abandons
// the reply and leaves the session broken.
func (s *S3270) run(ctx context.Context, command string) (*reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return nil, ErrBroken
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintln(s.w, command); err != nil {
		s.broken = true
		return nil, fmt.Errorf("s3270 %s: %w", command, err)
	}

	type result struct {
		rep *reply
		err error
	}
	done := make(chan result, 1)
	go func() {
		rep, err := readReply(s.r)
		done <- result{rep, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		s.broken = true
		logging.LogCommand(s.logger, s.Name(), command, ctx.Err())
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		s.broken = true
		logging.LogCommand(s.logger, s.Name(), command, res.err)
		return nil, fmt.Errorf("s3270 %s: %w", command, res.err)
	}

	if st, err := model.ParseStatus(res.rep.status); err == nil {
		s.status = st
	} else {
		s.logger.Debug("unparsable status line", zap.String("status", res.rep.status), zap.Error(err))
	}
	logging.LogLines(s.logger, command, res.rep.data)

	if !res.rep.ok {
		err := fmt.Errorf("s3270 %s failed: %s", command, strings.Join(res.rep.data, "; "))
		logging.LogCommand(s.logger, s.Name(), command, err)
		return nil, err
	}
	logging.LogCommand(s.logger, s.Name(), command, nil)
	return res.rep, nil
}

// readReply reads lines up to and including the terminating ok/error line.
func readReply(r *bufio.Reader) (*reply, error) {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "ok" || line == "error" {
			return parseReply(lines, line == "ok")
		}
		lines = append(lines, line)
	}
}

func parseReply(lines []string, ok bool) (*reply, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("reply without status line")
	}
	rep := &reply{status: lines[len(lines)-1], ok: ok}
	for _, line := range lines[:len(lines)-1] {
		if !strings.HasPrefix(line, "data:") {
			return nil, fmt.Errorf("unexpected reply line %q", line)
		}
		line = strings.TrimPrefix(line, "data:")
		rep.data = append(rep.data, strings.TrimPrefix(line, " "))
	}
	return rep, nil
}
