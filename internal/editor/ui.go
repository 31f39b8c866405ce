package editor

import "github.com/rpggio/pagesmith/internal/domain/document"

// SetSelectedComponent focuses a component of the open page. An empty id
// clears the selection.
func (c *Controller) SetSelectedComponent(componentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if componentID == "" {
		c.ui.SelectedComponentID = ""
		return nil
	}
	i := -1
	if c.openPageID != "" {
		i = c.pageIndexLocked(c.openPageID)
	}
	if i < 0 || !document.ValidComponent(c.pageList[i].Components, componentID) {
		return componentNotFound(componentID)
	}
	c.ui.SelectedComponentID = componentID
	return nil
}

func (c *Controller) SetPreviewMode(on bool) {
	c.mu.Lock()
	c.ui.PreviewMode = on
	c.mu.Unlock()
}

// ToggleDarkMode flips the editor theme and returns the new value.
func (c *Controller) ToggleDarkMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui.DarkMode = !c.ui.DarkMode
	return c.ui.DarkMode
}

// ToggleSidebar flips sidebar visibility and returns the new value.
func (c *Controller) ToggleSidebar() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui.SidebarOpen = !c.ui.SidebarOpen
	return c.ui.SidebarOpen
}

func (c *Controller) UI() UIState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ui
}

// dropStaleSelectionLocked clears a selection whose component is gone.
func (c *Controller) dropStaleSelectionLocked() {
	if c.ui.SelectedComponentID == "" {
		return
	}
	i := -1
	if c.openPageID != "" {
		i = c.pageIndexLocked(c.openPageID)
	}
	if i < 0 {
		c.ui.SelectedComponentID = ""
		return
	}
	if _, ok := document.FindComponent(c.pageList[i].Components, c.ui.SelectedComponentID); !ok {
		c.ui.SelectedComponentID = ""
	}
}
