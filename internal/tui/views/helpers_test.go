package views

import (
	"time"

	"github.com/berth-dev/docchat/internal/chat"
	"github.com/berth-dev/docchat/internal/coordinator"
)

func stateWith(msgs ...chat.Message) coordinator.State {
	if len(msgs) == 0 {
		msgs = []chat.Message{chat.WelcomeMessage("Hello!", time.Now())}
	}
	return coordinator.State{Transcript: msgs, Mode: chat.DefaultMode()}
}
