package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/opst/yeastregulatorydb/pkg/tasks"
)

// GetTaskHandler handles GET /api/tasks/:id/ .
func GetTaskHandler(queue tasks.Queue) echo.HandlerFunc {
	return GetHandler(queue.Get)
}
