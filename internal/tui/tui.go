// Package tui is the terminal host: a parameter table, metric cards, an ASCII
// waveform and the explanation pane, all driven by a session.Controller.
package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"impulse-sim/internal/session"
	"impulse-sim/internal/waveform"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// stateMsg carries a controller snapshot.
type stateMsg struct{ session.State }

// explainDoneMsg reports the end of an explanation request.
type explainDoneMsg struct {
	text string
	err  error
}

// Relay forwards controller snapshots to the running program. Snapshots that
// arrive while no program is attached are dropped.
type Relay struct {
	mu      sync.Mutex
	program teaProgram
}

// Listener returns the session listener to pass to session.WithListener.
func (r *Relay) Listener() session.Listener {
	return func(st session.State) {
		r.mu.Lock()
		p := r.program
		r.mu.Unlock()
		if p != nil {
			p.Send(stateMsg{State: st})
		}
	}
}

func (r *Relay) attach(p teaProgram) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Run shows the interactive UI until the user quits or ctx is cancelled.
// ctrl should have been created with relay.Listener() so debounced runs reach the screen.
func Run(ctx context.Context, ctrl *session.Controller, relay *Relay, defaults waveform.Parameters) error {
	m := newModel(ctx, ctrl, defaults)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	relay.attach(p)
	defer relay.attach(nil)
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
