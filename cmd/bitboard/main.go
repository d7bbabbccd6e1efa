package main

import (
	"github.com/robotalks/bitboard.go/pkg/cli/sh"
	"github.com/robotalks/bitboard.go/pkg/session"
	"github.com/robotalks/bitboard.go/pkg/transport/serial"

	_ "github.com/robotalks/bitboard.go/pkg/cli/cmds/emu"
)

//go-build: CGO_ENABLED=0

func init() {
	session.SetupFlags()
	serial.SetupFlags()
}

func main() {
	sh.Main()
}
