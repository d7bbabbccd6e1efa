// Package emu provides shell commands controlling the emulator.
package emu

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/bitboard.go/pkg/cli/sh"
	"github.com/robotalks/bitboard.go/pkg/session"
)

const defaultPollSamples = 10

func request(c *ishell.Context, name string, fn func(context.Context) error) bool {
	if err := fn(context.Background()); err != nil {
		c.Err(fmt.Errorf("%s: %v", name, err))
		return false
	}
	return true
}

var (
	// PingCmd checks the board is alive.
	PingCmd = ishell.Cmd{
		Name: "ping",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if request(c, "ping", sh.SessionFrom(c).Ping) {
				c.Println("Pong received")
			}
		}),
	}

	// WriteCmd loads a file into emulator memory.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "FILE [ADDRESS]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("FILE required"))
				return
			}
			s := sh.ShellFrom(c)
			addr := s.Session.WriteAddress
			if len(c.Args) > 1 {
				if err := addr.Set(c.Args[1]); err != nil {
					c.Err(fmt.Errorf("Invalid ADDRESS: %v", err))
					return
				}
			}
			data, err := os.ReadFile(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("Writing %q (%d bytes) at %s...\n", c.Args[0], len(data), addr.String())
			stats, err := s.Link.Session.WriteMemory(uint16(addr), data)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%d chunks (%d bytes) sent, %d zero chunks skipped\n", stats.Chunks, stats.Bytes, stats.Skipped)
		}),
	}

	// StartCmd starts the emulator.
	StartCmd = ishell.Cmd{
		Name: "start",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			request(c, "start", sh.SessionFrom(c).Start)
		}),
	}

	// StopCmd stops the emulator.
	StopCmd = ishell.Cmd{
		Name: "stop",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			request(c, "stop", sh.SessionFrom(c).Stop)
		}),
	}

	// StepCmd steps the emulator, repeatedly on Enter in interactive mode.
	StepCmd = ishell.Cmd{
		Name:    "step",
		Aliases: []string{"s"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sess := sh.SessionFrom(c)
			if !request(c, "step", sess.Step) || !sh.ShellFrom(c).Interactive {
				return
			}
			for {
				c.Print("Enter to step again, q to quit: ")
				if line := strings.TrimSpace(c.ReadLine()); line == "q" {
					return
				}
				if !request(c, "step", sess.Step) {
					return
				}
			}
		}),
	}

	// CountCmd prints the instruction counter.
	CountCmd = ishell.Cmd{
		Name: "count",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			n, err := sh.SessionFrom(c).InstructionCount(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%d instructions\n", n)
		}),
	}

	// PollCmd polls the instruction counter periodically.
	PollCmd = ishell.Cmd{
		Name: "poll",
		Help: "[SAMPLES]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			samples := defaultPollSamples
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("Invalid SAMPLES: %s", c.Args[0]))
					return
				}
				samples = n
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sh.SessionFrom(c).Poll(ctx, func(s session.Sample) {
				c.Printf("[%s] %d instructions (+%d)\n", sh.Timestamp(s.At), s.Total, s.Delta)
				if samples--; samples <= 0 {
					cancel()
				}
			})
		}),
	}
)

func init() {
	sh.AddCmds(
		&PingCmd,
		&WriteCmd,
		&StartCmd,
		&StopCmd,
		&StepCmd,
		&CountCmd,
		&PollCmd,
	)
}
