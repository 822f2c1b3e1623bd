package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Rorical/wireui/internal/models"
)

func TestRenderFlash(t *testing.T) {
	assert.Equal(t, "", RenderFlash(nil, 40))
	out := RenderFlash(&models.FlashView{Category: "danger", Text: "Deleted"}, 40)
	assert.Contains(t, out, "Deleted")
}

func TestRenderConfirm(t *testing.T) {
	out := RenderConfirm(models.ConfirmView{Visible: true, Message: "Delete item?", Category: "danger"}, 60)
	assert.Contains(t, out, "Delete item?")
	assert.Contains(t, out, "Confirm")
	assert.Contains(t, out, "Dismiss")
}

func TestRenderInfo(t *testing.T) {
	out := RenderInfo("Socket Error", "db down", 60)
	assert.Contains(t, out, "Socket Error")
	assert.Contains(t, out, "db down")
}

func TestRenderPanel(t *testing.T) {
	assert.Contains(t, RenderPanel("", 40), "press r")
	assert.Contains(t, RenderPanel("<p>hello</p>", 40), "hello")
}

func TestRenderStatus(t *testing.T) {
	out := RenderStatus("Connected", true, 2, 3, 60)
	assert.Contains(t, out, "Connected")
	assert.Contains(t, out, "2 pending...")
	assert.NotContains(t, RenderStatus("Idle", false, 0, 3, 60), "pending")

	gone := RenderStatus("Disconnected", false, 2, 3, 60)
	assert.Contains(t, gone, "2 unanswered")
	assert.NotContains(t, gone, "pending")
}
