package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/porter/internal/tasks"
)

// MsgKind enumerates the messages the transfer views react to.
type MsgKind int

// Msg is the view's message union.
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgTransferComplete
)

type transferOutcome struct {
	result *tasks.TransferResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// transferCompleteMsg is the constructor for [MsgTransferComplete]
func transferCompleteMsg(result *tasks.TransferResult, err error) Msg {
	return Msg{kind: MsgTransferComplete, data: transferOutcome{result, err}}
}
