package session

import (
	"time"

	"github.com/aryan-manish-vaidya/Aurora/internal/capture"
	"github.com/aryan-manish-vaidya/Aurora/internal/playback"
)

const shutdownTimeout = 800 * time.Millisecond

// message is anything processed by the Run loop.
type message interface{ isMessage() }

// command is a user request answered on a reply channel.
type command interface{ isCommand() }

type commandMsg struct {
	cmd   command
	reply chan<- error
}

type captureMsg struct {
	event capture.Event
}

type inferenceMsg struct {
	request uint64
	reply   string
	err     error
}

type playbackMsg struct {
	event playback.Event
}

func (commandMsg) isMessage()   {}
func (captureMsg) isMessage()   {}
func (inferenceMsg) isMessage() {}
func (playbackMsg) isMessage()  {}

type activateMsg struct{}

type submitMsg struct {
	text string
}

type dismissMsg struct{}

type credentialMsg struct {
	value string
}

func (activateMsg) isCommand()   {}
func (submitMsg) isCommand()     {}
func (dismissMsg) isCommand()    {}
func (credentialMsg) isCommand() {}
