package tui

import (
	"context"
	"fmt"

	"github.com/Veraticus/osm-powerplants/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the browser until the user quits or ctx is canceled.
func Run(ctx context.Context, title string, records []model.RejectionRecord, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(title, records), opts...)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("rejection browser failed: %w", err)
	}
	return nil
}
