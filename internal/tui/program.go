package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

// Run starts the full-screen shell and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, flow *workflow.Store, opts ...Option) error {
	m := New(flow, opts...)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
