package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hopper1357/VTT/pkg/api"
	"github.com/hopper1357/VTT/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// EventKind - источник события консоли.
type EventKind uint8

const (
	EventLine    EventKind = iota + 1 // строка, введенная пользователем
	EventMessage                      // конверт от сервера
	EventEOF                          // ввод закончился
)

// Event - единица работы цикла консоли. Ввод и сеть пишут в один канал,
// поэтому реплику трогает только одна горутина.
type Event struct {
	Kind     EventKind
	Line     string
	Envelope api.Envelope
}

// Sender - исходящая сторона соединения.
type Sender interface {
	SendCommand(line string) error
	SendChat(text string) error
}

// Console связывает ввод пользователя, соединение и реплику.
type Console struct {
	conn    *Conn
	replica *Replica
	in      io.Reader
	out     io.Writer
}

func NewConsole(conn *Conn, replica *Replica, in io.Reader, out io.Writer) *Console {
	return &Console{conn: conn, replica: replica, in: in, out: out}
}

// Run работает до quit/exit, конца ввода, разрыва соединения или отмены ctx.
// Соединение закрывается при выходе.
func (c *Console) Run(ctx context.Context) error {
	defer func() { _ = c.conn.Close() }()

	events := make(chan Event)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.conn.Listen(gctx, events)
	})

	// Чтение stdin нельзя прервать, поэтому горутина не входит в группу:
	// после выхода она завершится на следующей строке или EOF.
	go readLines(gctx, c.in, events)

	g.Go(func() error {
		defer func() { _ = c.conn.Close() }()
		return loop(gctx, events, c.replica, c.conn, c.out)
	})

	err := g.Wait()
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

var errQuit = errors.New("quit")

func readLines(ctx context.Context, in io.Reader, out chan<- Event) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case out <- Event{Kind: EventLine, Line: scanner.Text()}:
		case <-ctx.Done():
			return
		}
	}
	select {
	case out <- Event{Kind: EventEOF}:
	case <-ctx.Done():
	}
}

// loop - единственный потребитель событий.
func loop(ctx context.Context, events <-chan Event, r *Replica, s Sender, out io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev.Kind {
			case EventEOF:
				return errQuit
			case EventMessage:
				text, err := r.Apply(ev.Envelope)
				if errors.Is(err, ErrDiverged) {
					return err
				}
				if err != nil {
					logger.Log.WithError(err).Warn("Failed to apply server message")
					fmt.Fprintf(out, "Error: %v\n", err)
					continue
				}
				if text != "" {
					fmt.Fprintln(out, text)
				}
			case EventLine:
				if err := handleLine(ev.Line, r, s, out); err != nil {
					return err
				}
			}
		}
	}
}

func handleLine(line string, r *Replica, s Sender, out io.Writer) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	lower := strings.ToLower(line)
	switch {
	case lower == "quit" || lower == "exit":
		return errQuit
	case strings.HasPrefix(lower, "say "):
		return s.SendChat(strings.TrimSpace(line[4:]))
	case r.IsLocal(line):
		text, err := r.Local(line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return nil
		}
		fmt.Fprintln(out, text)
		return nil
	}
	return s.SendCommand(line)
}
