// Package sh provides the interactive bitboard shell.
package sh

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/bitboard.go/pkg/command"
	fx "github.com/robotalks/bitboard.go/pkg/framework"
	"github.com/robotalks/bitboard.go/pkg/session"
	"github.com/robotalks/bitboard.go/pkg/slip"
	"github.com/robotalks/bitboard.go/pkg/transport"
	"github.com/robotalks/bitboard.go/pkg/transport/mqtt"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	Checksum    bool
	URL         string

	Shell   *ishell.Shell
	Session *session.Config
	Link    *Link
}

// Link is a connected framer and session running in background.
type Link struct {
	URL     string
	Cancel  func()
	Conn    io.ReadWriteCloser
	Framer  *slip.Framer
	Session *session.Session
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
	timeFormat        = "15:04:05.000"
)

var (
	// flags

	evalOnly   bool
	checksum   bool
	linkURL    string
	discoverIn = 500 * time.Millisecond

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&StatsCmd,
	}
)

func init() {
	if val := os.Getenv("BITBOARD_URL"); val != "" {
		linkURL = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&checksum, "checksum", checksum, "Frames carry checksum.")
	flag.StringVar(&linkURL, "url", linkURL, "Link URL: serial port, serial://, mqtt:// or ws://.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *session.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Checksum:    checksum,
		URL:         linkURL,

		Shell:   ishell.New(),
		Session: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// SessionFrom gets the connected Session from ishell context.
func SessionFrom(c *ishell.Context) *session.Session {
	return ShellFrom(c).Link.Session
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Link == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Timestamp formats t for display.
func Timestamp(t time.Time) string {
	return t.Format(timeFormat)
}

// Connect opens the link.
func (s *Shell) Connect(rawURL string) error {
	conn, err := transport.Open(rawURL)
	if err != nil {
		return err
	}
	link := &Link{URL: rawURL, Conn: conn}
	link.Framer = slip.NewFramer(conn, s.Checksum)
	link.Session = session.New(link.Framer, link.Framer.Queue, s.Session)
	link.Session.HandleFunc(command.Log, func(ctx context.Context, msg command.Message) {
		s.Shell.Printf("[%s][Log]: %s", Timestamp(time.Now()), msg.Text())
	})
	link.Session.HandleFunc(command.Error, func(ctx context.Context, msg command.Message) {
		s.Shell.Printf("[%s][Error]: %s\n", Timestamp(time.Now()), msg.Text())
	})

	runner := fx.NewRunner()
	link.Cancel = runner.Cancel
	runner.Go(
		fx.NamedRun("framer", fx.RunFunc(func(ctx context.Context) error {
			return fx.RunWithContextCloser(ctx, conn, func() error {
				return link.Framer.Run(ctx)
			})
		})),
		fx.NamedRun("session", link.Session),
	)
	go func() {
		if err := runner.Wait(); err != nil {
			glog.Errorf("link %s closed: %v", rawURL, err)
		}
	}()

	s.Disconnect()
	s.Link = link
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", displayName(rawURL)))
	return nil
}

// Disconnect disconnects current link.
func (s *Shell) Disconnect() {
	if s.Link != nil {
		s.Link.Cancel()
		s.Link = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Connect(s.URL); err != nil {
		// discover and connect work without a link.
		s.Shell.Printf("connect %q failed: %v\n", s.URL, err)
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

func displayName(rawURL string) string {
	if rawURL == "" {
		return "auto"
	}
	if pos := strings.Index(rawURL, "://"); pos > 0 {
		return rawURL[pos+3:]
	}
	return rawURL
}

var (
	// DiscoverCmd lists bridges on an MQTT broker.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "MQTT_URL",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("MQTT_URL required"))
				return
			}
			infoList, err := mqtt.Discover(context.Background(), c.Args[0], discoverIn)
			if err != nil {
				c.Err(err)
				return
			}
			if len(infoList) == 0 {
				c.Println("No bridges found")
				return
			}
			for _, info := range infoList {
				c.Printf("%s: %s @%d\n", info.ID, info.Meta.Port, info.Meta.BaudRate)
			}
		},
	}

	// ConnectCmd connects the board.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			rawURL := s.URL
			if len(c.Args) > 0 {
				rawURL = c.Args[0]
			}
			if err := s.Connect(rawURL); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current link.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// StatsCmd prints framing counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			st := ShellFrom(c).Link.Framer.Stats()
			c.Printf("sent %d, received %d, queued %d\n", st.Sent, st.Received, st.QueuedPackets)
			c.Printf("dropped %d (checksum %d, truncated %d, escape %d)\n",
				st.Dropped(), st.ChecksumErrors, st.TruncatedFrames, st.EscapeErrors)
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	if err := session.Default().Validate(); err != nil {
		log.Fatalln(err)
	}
	New(session.NewConfig()).Run(flag.Args()...)
}
